package service

import (
	"context"
	"errors"
	"time"

	"barberflow/internal/apperr"
	"barberflow/internal/domain"
	"barberflow/internal/repository"
	"barberflow/internal/store"
	"barberflow/internal/timeslot"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BlockingService reserves ranges of block-kind slots so nothing can be
// booked there. The whole range is handled in one serializable transaction:
// every candidate slot is read first, and if any of them is occupied by a
// booking the entire request fails with nothing written.
type BlockingService interface {
	Block(ctx context.Context, actor Actor, barberID uuid.UUID, start, end time.Time, reason string) ([]*domain.Slot, error)
	Unblock(ctx context.Context, actor Actor, barberID uuid.UUID, start, end time.Time) (int, error)
}

type blockingService struct {
	tx       store.Transactor
	slots    repository.SlotRepository
	barbers  repository.BarberRepository
	schedule *ScheduleValidator
	authz    Authorizer
	loc      *time.Location
	clock    func() time.Time
	logger   *zap.Logger
}

// NewBlockingService creates a new instance of BlockingService
func NewBlockingService(
	tx store.Transactor,
	slots repository.SlotRepository,
	barbers repository.BarberRepository,
	schedule *ScheduleValidator,
	authz Authorizer,
	loc *time.Location,
	clock func() time.Time,
	logger *zap.Logger,
) BlockingService {
	if clock == nil {
		clock = time.Now
	}
	return &blockingService{
		tx:       tx,
		slots:    slots,
		barbers:  barbers,
		schedule: schedule,
		authz:    authz,
		loc:      loc,
		clock:    clock,
		logger:   logger,
	}
}

func (s *blockingService) Block(ctx context.Context, actor Actor, barberID uuid.UUID, start, end time.Time, reason string) ([]*domain.Slot, error) {
	if barberID == uuid.Nil {
		return nil, apperr.InvalidArgument("barber id is required")
	}
	if reason == "" {
		return nil, apperr.InvalidArgument("reason is required")
	}
	if !timeslot.IsAligned(start, s.loc) || !timeslot.IsAligned(end, s.loc) {
		return nil, apperr.InvalidArgument("range must align to 30-minute boundaries")
	}
	if err := s.authz.Authorize(actor, ActionManageBlocks, barberID); err != nil {
		return nil, err
	}

	starts, err := timeslot.Enumerate(start, end)
	if err != nil {
		return nil, apperr.InvalidArgument("end time must be after start time")
	}

	barber, err := s.barbers.FindByID(ctx, barberID)
	if err != nil {
		if errors.Is(err, repository.ErrBarberNotFound) {
			return nil, apperr.NotFound("barber not found")
		}
		return nil, apperr.Internal(err, "failed to load barber")
	}
	for _, slotStart := range starts {
		if !s.schedule.IsDayOpen(barber, slotStart) {
			return nil, apperr.FailedPrecondition("%s falls on a closed day", formatSlot(slotStart, s.loc))
		}
	}

	now := s.clock()
	var written []*domain.Slot

	err = s.tx.WithinTx(ctx, func(tx store.Querier) error {
		slots := s.slots.WithTx(tx)
		written = written[:0]

		// Read every candidate before staging any write. A booking anywhere
		// in the range aborts the whole request; existing blocks are left
		// in place and not rewritten.
		var missing []time.Time
		for _, slotStart := range starts {
			slotID := timeslot.SlotID(slotStart, s.loc)
			existing, err := slots.Get(ctx, barberID, slotID)
			if err != nil {
				if errors.Is(err, repository.ErrSlotNotFound) {
					missing = append(missing, slotStart)
					continue
				}
				return apperr.Internal(err, "failed to read slot")
			}
			if existing.Kind == domain.SlotKindBooking {
				return apperr.FailedPrecondition("time slot at %s is already booked", formatSlot(slotStart, s.loc))
			}
		}

		for _, slotStart := range missing {
			slot := &domain.Slot{
				ID:        timeslot.SlotID(slotStart, s.loc),
				BarberID:  barberID,
				SlotStart: slotStart,
				DateKey:   timeslot.DateKey(slotStart, s.loc),
				Kind:      domain.SlotKindBlock,
				Reason:    reason,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := slots.Insert(ctx, slot); err != nil {
				if errors.Is(err, repository.ErrSlotTaken) {
					return apperr.AlreadyExists("time slot at %s was just taken", formatSlot(slotStart, s.loc))
				}
				return apperr.Internal(err, "failed to write block")
			}
			written = append(written, slot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slots blocked",
		zap.String("barber_id", barberID.String()),
		zap.Int("slots", len(written)),
		zap.String("reason", reason),
	)
	return written, nil
}

// Unblock deletes block-kind slots in the range. Booking-kind slots are left
// untouched.
func (s *blockingService) Unblock(ctx context.Context, actor Actor, barberID uuid.UUID, start, end time.Time) (int, error) {
	if barberID == uuid.Nil {
		return 0, apperr.InvalidArgument("barber id is required")
	}
	if err := s.authz.Authorize(actor, ActionManageBlocks, barberID); err != nil {
		return 0, err
	}

	starts, err := timeslot.Enumerate(start, end)
	if err != nil {
		return 0, apperr.InvalidArgument("end time must be after start time")
	}

	removed := 0
	err = s.tx.WithinTx(ctx, func(tx store.Querier) error {
		slots := s.slots.WithTx(tx)
		removed = 0

		var toDelete []string
		for _, slotStart := range starts {
			slotID := timeslot.SlotID(slotStart, s.loc)
			existing, err := slots.Get(ctx, barberID, slotID)
			if err != nil {
				if errors.Is(err, repository.ErrSlotNotFound) {
					continue
				}
				return apperr.Internal(err, "failed to read slot")
			}
			if existing.Kind == domain.SlotKindBlock {
				toDelete = append(toDelete, slotID)
			}
		}

		for _, slotID := range toDelete {
			if err := slots.Delete(ctx, barberID, slotID); err != nil {
				return apperr.Internal(err, "failed to delete block")
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	s.logger.Info("Slots unblocked",
		zap.String("barber_id", barberID.String()),
		zap.Int("slots", removed),
	)
	return removed, nil
}
