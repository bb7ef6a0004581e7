package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"barberflow/internal/apperr"
	"barberflow/internal/domain"
	"barberflow/internal/repository"
	"barberflow/internal/service"
	"barberflow/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// newBookingFlow wires the booking service against the containerized
// database, so the full transaction runs under the production schema and
// its foreign keys.
func newBookingFlow(t *testing.T) (service.BookingService, uuid.UUID, *time.Location) {
	t.Helper()

	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	schedule := make(domain.WeekSchedule, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		schedule[day] = domain.DaySchedule{
			Active: true,
			Open:   "09:00",
			Close:  "19:00",
			Breaks: []domain.BreakWindow{{Start: "12:00", End: "13:00"}},
		}
	}
	barber := &domain.Barber{
		ID:       uuid.New(),
		Name:     "Rafael",
		Role:     domain.RoleBarber,
		Schedule: schedule,
		Active:   true,
	}
	if err := repository.NewBarberRepository(testDB).Create(context.Background(), barber); err != nil {
		t.Fatalf("create barber: %v", err)
	}

	svc := service.NewBookingService(
		store.NewSQLTransactor(testDB, zap.NewNop()),
		repository.NewSlotRepository(testDB),
		repository.NewBookingRepository(testDB),
		repository.NewCustomerRepository(testDB),
		repository.NewBarberRepository(testDB),
		service.NewScheduleValidator(loc),
		service.NewAuthorizer(),
		loc,
		nil,
		zap.NewNop(),
	)
	return svc, barber.ID, loc
}

func flowInput(barberID uuid.UUID, slotStart time.Time, whatsapp string) service.CreateBookingInput {
	return service.CreateBookingInput{
		BarberID:    barberID,
		SlotStart:   slotStart,
		ServiceType: "haircut",
		Customer: service.CustomerInput{
			FirstName: "João",
			Whatsapp:  whatsapp,
		},
	}
}

func TestBookingFlowCreateAndCancel(t *testing.T) {
	svc, barberID, loc := newBookingFlow(t)
	ctx := context.Background()
	owner := service.Actor{UserID: uuid.NewString(), Role: domain.RoleOwner}
	slotStart := time.Date(2026, 4, 1, 10, 0, 0, 0, loc)

	booking, err := svc.Create(ctx, owner, flowInput(barberID, slotStart, "+5511988880001"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	slot, err := repository.NewSlotRepository(testDB).Get(ctx, barberID, "20260401_1000")
	if err != nil {
		t.Fatalf("slot after create: %v", err)
	}
	if slot.BookingID == nil || *slot.BookingID != booking.ID {
		t.Errorf("slot references %v, want %v", slot.BookingID, booking.ID)
	}
	if _, err := repository.NewBookingRepository(testDB).FindByID(ctx, booking.ID); err != nil {
		t.Fatalf("booking row after create: %v", err)
	}

	// A competing request for the same slot loses.
	_, err = svc.Create(ctx, owner, flowInput(barberID, slotStart, "+5511988880002"))
	if apperr.CodeOf(err) != apperr.CodeAlreadyExists {
		t.Fatalf("duplicate create = %v, want already-exists", err)
	}

	cancelled, err := svc.Cancel(ctx, owner, booking.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != domain.BookingStatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}
	if _, err := repository.NewSlotRepository(testDB).Get(ctx, barberID, "20260401_1000"); !errors.Is(err, repository.ErrSlotNotFound) {
		t.Errorf("slot after cancel = %v, want ErrSlotNotFound", err)
	}

	// The freed slot is bookable again.
	if _, err := svc.Create(ctx, owner, flowInput(barberID, slotStart, "+5511988880003")); err != nil {
		t.Fatalf("re-create after cancel: %v", err)
	}
}

func TestBookingFlowRebookAsNew(t *testing.T) {
	svc, barberID, loc := newBookingFlow(t)
	ctx := context.Background()
	owner := service.Actor{UserID: uuid.NewString(), Role: domain.RoleOwner}

	booking, err := svc.Create(ctx, owner, flowInput(barberID, time.Date(2026, 4, 1, 14, 0, 0, 0, loc), "+5511988880010"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	replacement, err := svc.RebookAsNew(ctx, owner, booking.ID, time.Date(2026, 4, 1, 15, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("rebook: %v", err)
	}

	old, err := repository.NewBookingRepository(testDB).FindByID(ctx, booking.ID)
	if err != nil {
		t.Fatalf("old booking: %v", err)
	}
	if old.Status != domain.BookingStatusCancelled {
		t.Errorf("old status = %q, want cancelled", old.Status)
	}
	if _, err := repository.NewSlotRepository(testDB).Get(ctx, barberID, "20260401_1400"); !errors.Is(err, repository.ErrSlotNotFound) {
		t.Errorf("old slot = %v, want ErrSlotNotFound", err)
	}

	slot, err := repository.NewSlotRepository(testDB).Get(ctx, barberID, "20260401_1500")
	if err != nil {
		t.Fatalf("new slot: %v", err)
	}
	if slot.BookingID == nil || *slot.BookingID != replacement.ID {
		t.Errorf("new slot references %v, want %v", slot.BookingID, replacement.ID)
	}
}
