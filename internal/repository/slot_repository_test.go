package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"barberflow/internal/database"
	"barberflow/internal/domain"
	"barberflow/internal/repository"
	"barberflow/internal/store"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	// The production migrations, so the tests see the real schema with its
	// foreign keys and constraints.
	if err := database.RunMigrations(testDB, "../../migrations", zap.NewNop()); err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

var whatsappSeq int64

// seedBarber inserts a barbers row so slot and booking rows can reference it.
func seedBarber(t testing.TB) uuid.UUID {
	t.Helper()
	barber := &domain.Barber{
		ID:       uuid.New(),
		Name:     "Rafael",
		Role:     domain.RoleBarber,
		Schedule: domain.WeekSchedule{},
		Active:   true,
	}
	if err := repository.NewBarberRepository(testDB).Create(context.Background(), barber); err != nil {
		t.Fatalf("seed barber: %v", err)
	}
	return barber.ID
}

func seedCustomer(t testing.TB) uuid.UUID {
	t.Helper()
	customer := &domain.Customer{
		ID:        uuid.New(),
		FirstName: "João",
		Whatsapp:  fmt.Sprintf("+55119%08d", atomic.AddInt64(&whatsappSeq, 1)),
	}
	if err := repository.NewCustomerRepository(testDB).Insert(context.Background(), customer); err != nil {
		t.Fatalf("seed customer: %v", err)
	}
	return customer.ID
}

func seedBooking(t testing.TB, barberID uuid.UUID, slotStart time.Time) *domain.Booking {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	booking := &domain.Booking{
		ID:          uuid.New(),
		BarberID:    barberID,
		CustomerID:  seedCustomer(t),
		ServiceType: "haircut",
		SlotStart:   slotStart,
		DateKey:     slotStart.Format("2006-01-02"),
		Status:      domain.BookingStatusBooked,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repository.NewBookingRepository(testDB).Insert(context.Background(), booking); err != nil {
		t.Fatalf("seed booking: %v", err)
	}
	return booking
}

func newTestSlot(t testing.TB, barberID uuid.UUID, slotID string, kind domain.SlotKind) *domain.Slot {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	slot := &domain.Slot{
		ID:        slotID,
		BarberID:  barberID,
		SlotStart: now,
		DateKey:   now.Format("2006-01-02"),
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if kind == domain.SlotKindBooking {
		booking := seedBooking(t, barberID, now)
		slot.BookingID = &booking.ID
	} else {
		slot.Reason = "holiday"
	}
	return slot
}

func TestSlotInsertAndGet(t *testing.T) {
	repo := repository.NewSlotRepository(testDB)
	ctx := context.Background()
	barberID := seedBarber(t)

	slot := newTestSlot(t, barberID, "20260310_1000", domain.SlotKindBooking)
	if err := repo.Insert(ctx, slot); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.Get(ctx, barberID, "20260310_1000")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != domain.SlotKindBooking {
		t.Errorf("kind = %q, want booking", got.Kind)
	}
	if got.BookingID == nil || *got.BookingID != *slot.BookingID {
		t.Errorf("booking id not preserved")
	}
	if !got.SlotStart.Equal(slot.SlotStart) {
		t.Errorf("slot start = %v, want %v", got.SlotStart, slot.SlotStart)
	}

	if _, err := repo.Get(ctx, barberID, "20260310_1030"); !errors.Is(err, repository.ErrSlotNotFound) {
		t.Errorf("get missing = %v, want ErrSlotNotFound", err)
	}
}

func TestSlotBlockRoundTrip(t *testing.T) {
	repo := repository.NewSlotRepository(testDB)
	ctx := context.Background()
	barberID := seedBarber(t)

	slot := newTestSlot(t, barberID, "20260310_1400", domain.SlotKindBlock)
	if err := repo.Insert(ctx, slot); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := repo.Get(ctx, barberID, "20260310_1400")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Kind != domain.SlotKindBlock {
		t.Errorf("kind = %q, want block", got.Kind)
	}
	if got.Reason != "holiday" {
		t.Errorf("reason = %q, want holiday", got.Reason)
	}
	if got.BookingID != nil {
		t.Errorf("block slot must not carry a booking id")
	}
}

func TestSlotDuplicateInsertIsErrSlotTaken(t *testing.T) {
	repo := repository.NewSlotRepository(testDB)
	ctx := context.Background()
	barberID := seedBarber(t)

	if err := repo.Insert(ctx, newTestSlot(t, barberID, "20260310_1100", domain.SlotKindBooking)); err != nil {
		t.Fatalf("first insert: %v", err)
	}

	err := repo.Insert(ctx, newTestSlot(t, barberID, "20260310_1100", domain.SlotKindBooking))
	if !errors.Is(err, repository.ErrSlotTaken) {
		t.Fatalf("duplicate insert = %v, want ErrSlotTaken", err)
	}

	// The same slot id on another barber's calendar is free.
	if err := repo.Insert(ctx, newTestSlot(t, seedBarber(t), "20260310_1100", domain.SlotKindBooking)); err != nil {
		t.Fatalf("other barber insert: %v", err)
	}
}

func TestSlotDelete(t *testing.T) {
	repo := repository.NewSlotRepository(testDB)
	ctx := context.Background()
	barberID := seedBarber(t)

	if err := repo.Insert(ctx, newTestSlot(t, barberID, "20260310_1200", domain.SlotKindBooking)); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := repo.Delete(ctx, barberID, "20260310_1200"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, barberID, "20260310_1200"); !errors.Is(err, repository.ErrSlotNotFound) {
		t.Errorf("get after delete = %v, want ErrSlotNotFound", err)
	}
	if err := repo.Delete(ctx, barberID, "20260310_1200"); !errors.Is(err, repository.ErrSlotNotFound) {
		t.Errorf("second delete = %v, want ErrSlotNotFound", err)
	}
}

func TestSlotListByDateOrdersByStart(t *testing.T) {
	repo := repository.NewSlotRepository(testDB)
	ctx := context.Background()
	barberID := seedBarber(t)
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	ids := []string{"20260314_1500", "20260314_0900", "20260314_1200"}
	offsets := []time.Duration{3 * time.Hour, -3 * time.Hour, 0}
	for i, id := range ids {
		slot := newTestSlot(t, barberID, id, domain.SlotKindBooking)
		slot.SlotStart = base.Add(offsets[i])
		slot.DateKey = "2026-03-14"
		if err := repo.Insert(ctx, slot); err != nil {
			t.Fatalf("insert %s: %v", id, err)
		}
	}

	slots, err := repo.ListByDate(ctx, barberID, "2026-03-14")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(slots) != 3 {
		t.Fatalf("len = %d, want 3", len(slots))
	}
	want := []string{"20260314_0900", "20260314_1200", "20260314_1500"}
	for i, slot := range slots {
		if slot.ID != want[i] {
			t.Errorf("slots[%d] = %s, want %s", i, slot.ID, want[i])
		}
	}
}

func TestSlotInsertRejectsUnknownBooking(t *testing.T) {
	repo := repository.NewSlotRepository(testDB)
	ctx := context.Background()

	slot := newTestSlot(t, seedBarber(t), "20260310_1700", domain.SlotKindBlock)
	orphan := uuid.New()
	slot.Kind = domain.SlotKindBooking
	slot.Reason = ""
	slot.BookingID = &orphan

	if err := repo.Insert(ctx, slot); err == nil {
		t.Fatal("insert with a booking id that has no booking row must fail")
	}
}

func TestSlotInsertRollsBackWithTransaction(t *testing.T) {
	repo := repository.NewSlotRepository(testDB)
	tx := store.NewSQLTransactor(testDB, zap.NewNop())
	ctx := context.Background()
	barberID := seedBarber(t)

	wantErr := errors.New("abort")
	err := tx.WithinTx(ctx, func(q store.Querier) error {
		if err := repo.WithTx(q).Insert(ctx, newTestSlot(t, barberID, "20260310_1600", domain.SlotKindBooking)); err != nil {
			return err
		}
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("WithinTx = %v, want %v", err, wantErr)
	}

	if _, err := repo.Get(ctx, barberID, "20260310_1600"); !errors.Is(err, repository.ErrSlotNotFound) {
		t.Errorf("slot survived a rolled-back transaction: %v", err)
	}
}

// Property: exactly one of two competing inserts on the same natural key
// succeeds, regardless of kind.
func TestProperty_SlotKeyIsExclusive(t *testing.T) {
	repo := repository.NewSlotRepository(testDB)
	ctx := context.Background()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)

	genKind := gen.OneConstOf(domain.SlotKindBooking, domain.SlotKindBlock)

	properties.Property("second insert on an occupied key always loses", prop.ForAll(
		func(hour int, firstKind, secondKind domain.SlotKind) bool {
			barberID := seedBarber(t)
			slotID := time.Date(2026, 3, 14, hour, 0, 0, 0, time.UTC).Format("20060102_1504")

			if err := repo.Insert(ctx, newTestSlot(t, barberID, slotID, firstKind)); err != nil {
				return false
			}
			err := repo.Insert(ctx, newTestSlot(t, barberID, slotID, secondKind))
			return errors.Is(err, repository.ErrSlotTaken)
		},
		gen.IntRange(0, 23),
		genKind,
		genKind,
	))

	properties.TestingRun(t)
}
