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

// CustomerInput identifies the customer on a booking request. Customers are
// keyed by WhatsApp number and created on first contact.
type CustomerInput struct {
	FirstName string
	LastName  string
	Whatsapp  string
}

// CreateBookingInput carries everything needed to create a booking.
type CreateBookingInput struct {
	BarberID      uuid.UUID
	SlotStart     time.Time
	ServiceType   string
	PaymentMethod string
	Customer      CustomerInput
}

// BookingService orchestrates the booking lifecycle. Every mutation runs as
// one atomic transaction over the slot index, the booking record and the
// customer aggregates: reads happen first, then writes, so two concurrent
// attempts on the same slot serialize and exactly one wins.
type BookingService interface {
	Create(ctx context.Context, actor Actor, input CreateBookingInput) (*domain.Booking, error)
	Cancel(ctx context.Context, actor Actor, bookingID uuid.UUID) (*domain.Booking, error)
	Reschedule(ctx context.Context, actor Actor, bookingID uuid.UUID, newSlotStart time.Time) (*domain.Booking, error)
	RebookAsNew(ctx context.Context, actor Actor, bookingID uuid.UUID, newSlotStart time.Time) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, actor Actor, bookingID uuid.UUID, status domain.BookingStatus) (*domain.Booking, error)
	DayAgenda(ctx context.Context, actor Actor, barberID uuid.UUID, dateKey string) ([]*domain.Slot, error)
}

type bookingService struct {
	tx        store.Transactor
	slots     repository.SlotRepository
	bookings  repository.BookingRepository
	customers repository.CustomerRepository
	barbers   repository.BarberRepository
	schedule  *ScheduleValidator
	authz     Authorizer
	loc       *time.Location
	clock     func() time.Time
	logger    *zap.Logger
}

// NewBookingService creates a new instance of BookingService
func NewBookingService(
	tx store.Transactor,
	slots repository.SlotRepository,
	bookings repository.BookingRepository,
	customers repository.CustomerRepository,
	barbers repository.BarberRepository,
	schedule *ScheduleValidator,
	authz Authorizer,
	loc *time.Location,
	clock func() time.Time,
	logger *zap.Logger,
) BookingService {
	if clock == nil {
		clock = time.Now
	}
	return &bookingService{
		tx:        tx,
		slots:     slots,
		bookings:  bookings,
		customers: customers,
		barbers:   barbers,
		schedule:  schedule,
		authz:     authz,
		loc:       loc,
		clock:     clock,
		logger:    logger,
	}
}

func (s *bookingService) Create(ctx context.Context, actor Actor, input CreateBookingInput) (*domain.Booking, error) {
	if err := validateCreateBooking(input); err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, ActionManageBookings, input.BarberID); err != nil {
		return nil, err
	}

	barber, err := s.barbers.FindByID(ctx, input.BarberID)
	if err != nil {
		if errors.Is(err, repository.ErrBarberNotFound) {
			return nil, apperr.NotFound("barber not found")
		}
		return nil, apperr.Internal(err, "failed to load barber")
	}
	if err := s.schedule.ValidateSlot(barber, input.SlotStart); err != nil {
		return nil, err
	}

	now := s.clock()
	slotID := timeslot.SlotID(input.SlotStart, s.loc)
	dateKey := timeslot.DateKey(input.SlotStart, s.loc)

	booking := &domain.Booking{
		ID:            uuid.New(),
		BarberID:      input.BarberID,
		CustomerID:    uuid.Nil, // filled inside the transaction
		ServiceType:   input.ServiceType,
		SlotStart:     input.SlotStart,
		DateKey:       dateKey,
		Status:        domain.BookingStatusBooked,
		PaymentMethod: input.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.tx.WithinTx(ctx, func(tx store.Querier) error {
		slots := s.slots.WithTx(tx)
		bookings := s.bookings.WithTx(tx)
		customers := s.customers.WithTx(tx)

		// Reads first: slot occupancy, then customer.
		existing, err := slots.Get(ctx, input.BarberID, slotID)
		if err != nil && !errors.Is(err, repository.ErrSlotNotFound) {
			return apperr.Internal(err, "failed to read slot")
		}
		if existing != nil {
			return s.slotConflict(existing, input.SlotStart)
		}

		customer, err := customers.FindByWhatsapp(ctx, input.Customer.Whatsapp)
		newCustomer := false
		if err != nil {
			if !errors.Is(err, repository.ErrCustomerNotFound) {
				return apperr.Internal(err, "failed to load customer")
			}
			customer = &domain.Customer{
				ID:        uuid.New(),
				FirstName: input.Customer.FirstName,
				LastName:  input.Customer.LastName,
				Whatsapp:  input.Customer.Whatsapp,
				CreatedAt: now,
				UpdatedAt: now,
			}
			newCustomer = true
		}
		booking.CustomerID = customer.ID

		// Writes. The booking row must exist before the slot row that
		// references it.
		if newCustomer {
			if err := customers.Insert(ctx, customer); err != nil {
				return apperr.Internal(err, "failed to create customer")
			}
		}
		if err := bookings.Insert(ctx, booking); err != nil {
			return apperr.Internal(err, "failed to create booking")
		}
		if err := slots.Insert(ctx, s.bookingSlot(booking, slotID, now)); err != nil {
			if errors.Is(err, repository.ErrSlotTaken) {
				return apperr.AlreadyExists("time slot at %s was just taken", formatSlot(input.SlotStart, s.loc))
			}
			return apperr.Internal(err, "failed to reserve slot")
		}
		if err := customers.ApplyBookingStats(ctx, customer.ID, repository.BookingStatsDelta{Total: 1, LastBookingAt: &now}); err != nil {
			return apperr.Internal(err, "failed to update customer stats")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("barber_id", booking.BarberID.String()),
		zap.String("slot_id", slotID),
	)
	return booking, nil
}

func (s *bookingService) Cancel(ctx context.Context, actor Actor, bookingID uuid.UUID) (*domain.Booking, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, ActionManageBookings, booking.BarberID); err != nil {
		return nil, err
	}
	if !booking.CanTransitionTo(domain.BookingStatusCancelled) {
		return nil, apperr.FailedPrecondition("booking is already %s", booking.Status)
	}

	now := s.clock()
	var slotID string

	err = s.tx.WithinTx(ctx, func(tx store.Querier) error {
		slots := s.slots.WithTx(tx)
		bookings := s.bookings.WithTx(tx)
		customers := s.customers.WithTx(tx)

		current, err := bookings.FindByID(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrBookingNotFound) {
				return apperr.NotFound("booking not found")
			}
			return apperr.Internal(err, "failed to read booking")
		}
		if !current.CanTransitionTo(domain.BookingStatusCancelled) {
			return apperr.FailedPrecondition("booking is already %s", current.Status)
		}

		// The slot id comes from the transactional read, not the caller's
		// copy: a reschedule may have moved the booking in between.
		slotID = timeslot.SlotID(current.SlotStart, s.loc)
		if err := slots.Delete(ctx, current.BarberID, slotID); err != nil && !errors.Is(err, repository.ErrSlotNotFound) {
			return apperr.Internal(err, "failed to release slot")
		}
		if err := bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusCancelled, &now); err != nil {
			return apperr.Internal(err, "failed to cancel booking")
		}
		if err := customers.ApplyBookingStats(ctx, current.CustomerID, repository.BookingStatsDelta{Cancelled: 1}); err != nil {
			return apperr.Internal(err, "failed to update customer stats")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.Status = domain.BookingStatusCancelled
	booking.CancelledAt = &now

	s.logger.Info("Booking cancelled",
		zap.String("booking_id", bookingID.String()),
		zap.String("slot_id", slotID),
	)
	return booking, nil
}

// Reschedule moves the existing booking to a new slot in place. The read of
// the target slot inside the transaction is the conflict-detection point:
// under concurrent attempts exactly one commit wins.
func (s *bookingService) Reschedule(ctx context.Context, actor Actor, bookingID uuid.UUID, newSlotStart time.Time) (*domain.Booking, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, ActionManageBookings, booking.BarberID); err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusBooked && booking.Status != domain.BookingStatusConfirmed {
		return nil, apperr.FailedPrecondition("cannot reschedule a %s booking", booking.Status)
	}

	barber, err := s.barbers.FindByID(ctx, booking.BarberID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load barber")
	}
	if err := s.schedule.ValidateSlot(barber, newSlotStart); err != nil {
		return nil, err
	}

	now := s.clock()
	newSlotID := timeslot.SlotID(newSlotStart, s.loc)
	newDateKey := timeslot.DateKey(newSlotStart, s.loc)
	if timeslot.SlotID(booking.SlotStart, s.loc) == newSlotID {
		return nil, apperr.InvalidArgument("booking already occupies that slot")
	}

	var oldStart time.Time
	var oldSlotID string

	err = s.tx.WithinTx(ctx, func(tx store.Querier) error {
		slots := s.slots.WithTx(tx)
		bookings := s.bookings.WithTx(tx)

		existing, err := slots.Get(ctx, booking.BarberID, newSlotID)
		if err != nil && !errors.Is(err, repository.ErrSlotNotFound) {
			return apperr.Internal(err, "failed to read slot")
		}
		if existing != nil {
			return s.slotConflict(existing, newSlotStart)
		}

		current, err := bookings.FindByID(ctx, bookingID)
		if err != nil {
			return apperr.Internal(err, "failed to read booking")
		}
		if current.Status != domain.BookingStatusBooked && current.Status != domain.BookingStatusConfirmed {
			return apperr.FailedPrecondition("cannot reschedule a %s booking", current.Status)
		}

		// The released slot comes from the transactional read, not the
		// caller's copy: a reschedule may have moved the booking in between.
		oldStart = current.SlotStart
		oldSlotID = timeslot.SlotID(oldStart, s.loc)
		if oldSlotID == newSlotID {
			return apperr.InvalidArgument("booking already occupies that slot")
		}

		newSlot := s.bookingSlot(current, newSlotID, now)
		newSlot.SlotStart = newSlotStart
		newSlot.DateKey = newDateKey
		if err := slots.Insert(ctx, newSlot); err != nil {
			if errors.Is(err, repository.ErrSlotTaken) {
				return apperr.AlreadyExists("time slot at %s was just taken", formatSlot(newSlotStart, s.loc))
			}
			return apperr.Internal(err, "failed to reserve slot")
		}
		if err := slots.Delete(ctx, current.BarberID, oldSlotID); err != nil && !errors.Is(err, repository.ErrSlotNotFound) {
			return apperr.Internal(err, "failed to release old slot")
		}
		if err := bookings.UpdateSlot(ctx, bookingID, newSlotStart, newDateKey, oldStart); err != nil {
			return apperr.Internal(err, "failed to move booking")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.SlotStart = newSlotStart
	booking.DateKey = newDateKey
	booking.RescheduledFrom = &oldStart

	s.logger.Info("Booking rescheduled",
		zap.String("booking_id", bookingID.String()),
		zap.String("old_slot_id", oldSlotID),
		zap.String("new_slot_id", newSlotID),
	)
	return booking, nil
}

// RebookAsNew is the self-service reschedule model: the old booking is
// cancelled and a fresh booking/slot pair is created recording where it
// moved from. Kept separate from Reschedule on purpose.
func (s *bookingService) RebookAsNew(ctx context.Context, actor Actor, bookingID uuid.UUID, newSlotStart time.Time) (*domain.Booking, error) {
	old, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, ActionManageBookings, old.BarberID); err != nil {
		return nil, err
	}
	if old.Status != domain.BookingStatusBooked && old.Status != domain.BookingStatusConfirmed {
		return nil, apperr.FailedPrecondition("cannot rebook a %s booking", old.Status)
	}

	barber, err := s.barbers.FindByID(ctx, old.BarberID)
	if err != nil {
		return nil, apperr.Internal(err, "failed to load barber")
	}
	if err := s.schedule.ValidateSlot(barber, newSlotStart); err != nil {
		return nil, err
	}

	now := s.clock()
	newSlotID := timeslot.SlotID(newSlotStart, s.loc)

	replacement := &domain.Booking{
		ID:            uuid.New(),
		BarberID:      old.BarberID,
		CustomerID:    old.CustomerID,
		ServiceType:   old.ServiceType,
		SlotStart:     newSlotStart,
		DateKey:       timeslot.DateKey(newSlotStart, s.loc),
		Status:        domain.BookingStatusBooked,
		PaymentMethod: old.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.tx.WithinTx(ctx, func(tx store.Querier) error {
		slots := s.slots.WithTx(tx)
		bookings := s.bookings.WithTx(tx)
		customers := s.customers.WithTx(tx)

		existing, err := slots.Get(ctx, old.BarberID, newSlotID)
		if err != nil && !errors.Is(err, repository.ErrSlotNotFound) {
			return apperr.Internal(err, "failed to read slot")
		}
		if existing != nil {
			return s.slotConflict(existing, newSlotStart)
		}

		current, err := bookings.FindByID(ctx, bookingID)
		if err != nil {
			return apperr.Internal(err, "failed to read booking")
		}
		if current.Status != domain.BookingStatusBooked && current.Status != domain.BookingStatusConfirmed {
			return apperr.FailedPrecondition("cannot rebook a %s booking", current.Status)
		}

		// The released slot and the rescheduled-from marker come from the
		// transactional read, not the caller's copy.
		oldStart := current.SlotStart
		oldSlotID := timeslot.SlotID(oldStart, s.loc)
		replacement.RescheduledFrom = &oldStart

		if err := slots.Delete(ctx, current.BarberID, oldSlotID); err != nil && !errors.Is(err, repository.ErrSlotNotFound) {
			return apperr.Internal(err, "failed to release old slot")
		}
		if err := bookings.UpdateStatus(ctx, bookingID, domain.BookingStatusCancelled, &now); err != nil {
			return apperr.Internal(err, "failed to cancel old booking")
		}
		// The booking row must exist before the slot row that references it.
		if err := bookings.Insert(ctx, replacement); err != nil {
			return apperr.Internal(err, "failed to create booking")
		}
		if err := slots.Insert(ctx, s.bookingSlot(replacement, newSlotID, now)); err != nil {
			if errors.Is(err, repository.ErrSlotTaken) {
				return apperr.AlreadyExists("time slot at %s was just taken", formatSlot(newSlotStart, s.loc))
			}
			return apperr.Internal(err, "failed to reserve slot")
		}
		if err := customers.ApplyBookingStats(ctx, current.CustomerID, repository.BookingStatsDelta{Total: 1, Cancelled: 1, LastBookingAt: &now}); err != nil {
			return apperr.Internal(err, "failed to update customer stats")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Booking rebooked",
		zap.String("old_booking_id", bookingID.String()),
		zap.String("new_booking_id", replacement.ID.String()),
	)
	return replacement, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, actor Actor, bookingID uuid.UUID, status domain.BookingStatus) (*domain.Booking, error) {
	switch status {
	case domain.BookingStatusConfirmed, domain.BookingStatusCompleted, domain.BookingStatusNoShow:
	case domain.BookingStatusCancelled:
		return s.Cancel(ctx, actor, bookingID)
	default:
		return nil, apperr.InvalidArgument("unknown status %q", status)
	}

	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.Authorize(actor, ActionManageBookings, booking.BarberID); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(tx store.Querier) error {
		bookings := s.bookings.WithTx(tx)
		customers := s.customers.WithTx(tx)

		current, err := bookings.FindByID(ctx, bookingID)
		if err != nil {
			return apperr.Internal(err, "failed to read booking")
		}
		if !current.CanTransitionTo(status) {
			return apperr.FailedPrecondition("cannot move a %s booking to %s", current.Status, status)
		}

		if err := bookings.UpdateStatus(ctx, bookingID, status, nil); err != nil {
			return apperr.Internal(err, "failed to update booking status")
		}
		if status == domain.BookingStatusCompleted {
			if err := customers.ApplyBookingStats(ctx, current.CustomerID, repository.BookingStatsDelta{Completed: 1}); err != nil {
				return apperr.Internal(err, "failed to update customer stats")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	booking.Status = status
	return booking, nil
}

// DayAgenda lists the occupied slots of a barber for one date key.
func (s *bookingService) DayAgenda(ctx context.Context, actor Actor, barberID uuid.UUID, dateKey string) ([]*domain.Slot, error) {
	if err := s.authz.Authorize(actor, ActionManageBookings, barberID); err != nil {
		return nil, err
	}
	if _, err := time.Parse("2006-01-02", dateKey); err != nil {
		return nil, apperr.InvalidArgument("date must be YYYY-MM-DD")
	}

	slots, err := s.slots.ListByDate(ctx, barberID, dateKey)
	if err != nil {
		return nil, apperr.Internal(err, "failed to list slots")
	}
	return slots, nil
}

func (s *bookingService) loadBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrBookingNotFound) {
			return nil, apperr.NotFound("booking not found")
		}
		return nil, apperr.Internal(err, "failed to load booking")
	}
	return booking, nil
}

func (s *bookingService) bookingSlot(booking *domain.Booking, slotID string, now time.Time) *domain.Slot {
	id := booking.ID
	return &domain.Slot{
		ID:        slotID,
		BarberID:  booking.BarberID,
		SlotStart: booking.SlotStart,
		DateKey:   booking.DateKey,
		Kind:      domain.SlotKindBooking,
		BookingID: &id,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *bookingService) slotConflict(existing *domain.Slot, slotStart time.Time) error {
	if existing.Kind == domain.SlotKindBlock {
		return apperr.FailedPrecondition("time slot at %s is blocked", formatSlot(slotStart, s.loc))
	}
	return apperr.AlreadyExists("time slot at %s is already booked", formatSlot(slotStart, s.loc))
}

func formatSlot(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02/01/2006 15:04")
}

func validateCreateBooking(input CreateBookingInput) error {
	if input.BarberID == uuid.Nil {
		return apperr.InvalidArgument("barber id is required")
	}
	if input.SlotStart.IsZero() {
		return apperr.InvalidArgument("slot start is required")
	}
	if input.ServiceType == "" {
		return apperr.InvalidArgument("service type is required")
	}
	if input.Customer.FirstName == "" || input.Customer.Whatsapp == "" {
		return apperr.InvalidArgument("customer first name and whatsapp are required")
	}
	return nil
}
