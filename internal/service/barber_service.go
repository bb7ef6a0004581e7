package service

import (
	"context"
	"errors"
	"time"

	"barberflow/internal/apperr"
	"barberflow/internal/domain"
	"barberflow/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BarberService manages barbers and their weekly schedules.
type BarberService interface {
	Create(ctx context.Context, actor Actor, name, role string, schedule domain.WeekSchedule) (*domain.Barber, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Barber, error)
	List(ctx context.Context) ([]*domain.Barber, error)
	UpdateSchedule(ctx context.Context, actor Actor, id uuid.UUID, schedule domain.WeekSchedule) (*domain.Barber, error)
}

type barberService struct {
	barbers repository.BarberRepository
	authz   Authorizer
	clock   func() time.Time
	logger  *zap.Logger
}

// NewBarberService creates a new instance of BarberService
func NewBarberService(barbers repository.BarberRepository, authz Authorizer, clock func() time.Time, logger *zap.Logger) BarberService {
	if clock == nil {
		clock = time.Now
	}
	return &barberService{
		barbers: barbers,
		authz:   authz,
		clock:   clock,
		logger:  logger,
	}
}

func (s *barberService) Create(ctx context.Context, actor Actor, name, role string, schedule domain.WeekSchedule) (*domain.Barber, error) {
	if name == "" {
		return nil, apperr.InvalidArgument("barber name is required")
	}
	switch role {
	case domain.RoleOwner, domain.RoleAdmin, domain.RoleBarber:
	default:
		return nil, apperr.InvalidArgument("unknown role %q", role)
	}
	if err := validateWeekSchedule(schedule); err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, ActionManageCatalog, uuid.Nil); err != nil {
		return nil, err
	}

	now := s.clock()
	barber := &domain.Barber{
		ID:        uuid.New(),
		Name:      name,
		Role:      role,
		Schedule:  schedule,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.barbers.Create(ctx, barber); err != nil {
		return nil, apperr.Internal(err, "failed to create barber")
	}

	s.logger.Info("Barber created",
		zap.String("barber_id", barber.ID.String()),
		zap.String("name", barber.Name),
	)
	return barber, nil
}

func (s *barberService) Get(ctx context.Context, id uuid.UUID) (*domain.Barber, error) {
	barber, err := s.barbers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBarberNotFound) {
			return nil, apperr.NotFound("barber not found")
		}
		return nil, apperr.Internal(err, "failed to load barber")
	}
	return barber, nil
}

func (s *barberService) List(ctx context.Context) ([]*domain.Barber, error) {
	barbers, err := s.barbers.List(ctx)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list barbers")
	}
	return barbers, nil
}

func (s *barberService) UpdateSchedule(ctx context.Context, actor Actor, id uuid.UUID, schedule domain.WeekSchedule) (*domain.Barber, error) {
	if err := validateWeekSchedule(schedule); err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, ActionManageCatalog, uuid.Nil); err != nil {
		return nil, err
	}

	if err := s.barbers.UpdateSchedule(ctx, id, schedule); err != nil {
		if errors.Is(err, repository.ErrBarberNotFound) {
			return nil, apperr.NotFound("barber not found")
		}
		return nil, apperr.Internal(err, "failed to update schedule")
	}

	return s.Get(ctx, id)
}

// validateWeekSchedule rejects malformed day windows before they reach the
// JSONB column. Existing bookings outside the new hours are left in place.
func validateWeekSchedule(schedule domain.WeekSchedule) error {
	for weekday, day := range schedule {
		if !day.Active {
			continue
		}
		open, err := minutesOfDay(day.Open)
		if err != nil {
			return apperr.InvalidArgument("invalid open time for %s", weekday)
		}
		close, err := minutesOfDay(day.Close)
		if err != nil {
			return apperr.InvalidArgument("invalid close time for %s", weekday)
		}
		if close <= open {
			return apperr.InvalidArgument("close must be after open on %s", weekday)
		}
		for _, br := range day.Breaks {
			brStart, err := minutesOfDay(br.Start)
			if err != nil {
				return apperr.InvalidArgument("invalid break start for %s", weekday)
			}
			brEnd, err := minutesOfDay(br.End)
			if err != nil {
				return apperr.InvalidArgument("invalid break end for %s", weekday)
			}
			if brEnd <= brStart || brStart < open || brEnd > close {
				return apperr.InvalidArgument("break outside working hours on %s", weekday)
			}
		}
	}
	return nil
}
