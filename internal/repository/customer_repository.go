package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"barberflow/internal/domain"
	"barberflow/internal/store"

	"github.com/google/uuid"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
)

// BookingStatsDelta adjusts a customer's booking counters.
type BookingStatsDelta struct {
	Total         int
	Completed     int
	Cancelled     int
	LastBookingAt *time.Time
}

// PurchaseStatsDelta adjusts a customer's purchase aggregates. SpentCents
// may be negative when a sale is reversed.
type PurchaseStatsDelta struct {
	Purchases      int
	SpentCents     int64
	LastPurchaseAt *time.Time
}

// CustomerRepository defines the interface for customer data access. Stats
// columns are only ever touched through the delta methods, from inside
// booking or sale transactions.
type CustomerRepository interface {
	WithTx(q store.Querier) CustomerRepository
	Insert(ctx context.Context, customer *domain.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	FindByWhatsapp(ctx context.Context, whatsapp string) (*domain.Customer, error)
	ApplyBookingStats(ctx context.Context, id uuid.UUID, delta BookingStatsDelta) error
	ApplyPurchaseStats(ctx context.Context, id uuid.UUID, delta PurchaseStatsDelta) error
}

type customerRepository struct {
	db store.Querier
}

// NewCustomerRepository creates a new instance of CustomerRepository
func NewCustomerRepository(db store.Querier) CustomerRepository {
	return &customerRepository{db: db}
}

// WithTx returns the repository bound to the given transaction
func (r *customerRepository) WithTx(q store.Querier) CustomerRepository {
	return &customerRepository{db: q}
}

const customerColumns = `id, first_name, last_name, whatsapp, total_bookings, completed_bookings,
	cancelled_bookings, total_purchases, total_spent_cents, last_booking_at, last_purchase_at, created_at, updated_at`

func scanCustomer(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Customer, error) {
	customer := &domain.Customer{}
	var lastBookingAt, lastPurchaseAt sql.NullTime

	err := row.Scan(
		&customer.ID,
		&customer.FirstName,
		&customer.LastName,
		&customer.Whatsapp,
		&customer.Stats.TotalBookings,
		&customer.Stats.CompletedBookings,
		&customer.Stats.CancelledBookings,
		&customer.Stats.TotalPurchases,
		&customer.Stats.TotalSpentCents,
		&lastBookingAt,
		&lastPurchaseAt,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastBookingAt.Valid {
		t := lastBookingAt.Time
		customer.Stats.LastBookingAt = &t
	}
	if lastPurchaseAt.Valid {
		t := lastPurchaseAt.Time
		customer.Stats.LastPurchaseAt = &t
	}
	return customer, nil
}

// Insert writes a new customer
func (r *customerRepository) Insert(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (id, first_name, last_name, whatsapp, total_bookings, completed_bookings,
			cancelled_bookings, total_purchases, total_spent_cents, last_booking_at, last_purchase_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var lastBookingAt, lastPurchaseAt interface{}
	if customer.Stats.LastBookingAt != nil {
		lastBookingAt = *customer.Stats.LastBookingAt
	}
	if customer.Stats.LastPurchaseAt != nil {
		lastPurchaseAt = *customer.Stats.LastPurchaseAt
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		customer.ID,
		customer.FirstName,
		customer.LastName,
		customer.Whatsapp,
		customer.Stats.TotalBookings,
		customer.Stats.CompletedBookings,
		customer.Stats.CancelledBookings,
		customer.Stats.TotalPurchases,
		customer.Stats.TotalSpentCents,
		lastBookingAt,
		lastPurchaseAt,
		customer.CreatedAt,
		customer.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}

	return nil
}

// FindByID retrieves a customer by ID
func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer by ID: %w", err)
	}

	return customer, nil
}

// FindByWhatsapp retrieves a customer by WhatsApp number
func (r *customerRepository) FindByWhatsapp(ctx context.Context, whatsapp string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE whatsapp = $1`

	customer, err := scanCustomer(r.db.QueryRowContext(ctx, query, whatsapp))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCustomerNotFound
		}
		return nil, fmt.Errorf("failed to find customer by whatsapp: %w", err)
	}

	return customer, nil
}

// ApplyBookingStats adjusts booking counters by the given delta
func (r *customerRepository) ApplyBookingStats(ctx context.Context, id uuid.UUID, delta BookingStatsDelta) error {
	query := `
		UPDATE customers
		SET total_bookings = total_bookings + $2,
		    completed_bookings = completed_bookings + $3,
		    cancelled_bookings = cancelled_bookings + $4,
		    last_booking_at = COALESCE($5, last_booking_at),
		    updated_at = now()
		WHERE id = $1
	`

	var lastBookingAt interface{}
	if delta.LastBookingAt != nil {
		lastBookingAt = *delta.LastBookingAt
	}

	result, err := r.db.ExecContext(ctx, query, id, delta.Total, delta.Completed, delta.Cancelled, lastBookingAt)
	if err != nil {
		return fmt.Errorf("failed to apply booking stats: %w", err)
	}

	return requireRow(result, ErrCustomerNotFound)
}

// ApplyPurchaseStats adjusts purchase aggregates by the given delta
func (r *customerRepository) ApplyPurchaseStats(ctx context.Context, id uuid.UUID, delta PurchaseStatsDelta) error {
	query := `
		UPDATE customers
		SET total_purchases = total_purchases + $2,
		    total_spent_cents = total_spent_cents + $3,
		    last_purchase_at = COALESCE($4, last_purchase_at),
		    updated_at = now()
		WHERE id = $1
	`

	var lastPurchaseAt interface{}
	if delta.LastPurchaseAt != nil {
		lastPurchaseAt = *delta.LastPurchaseAt
	}

	result, err := r.db.ExecContext(ctx, query, id, delta.Purchases, delta.SpentCents, lastPurchaseAt)
	if err != nil {
		return fmt.Errorf("failed to apply purchase stats: %w", err)
	}

	return requireRow(result, ErrCustomerNotFound)
}
