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
	ErrBookingNotFound = errors.New("booking not found")
)

// BookingRepository defines the interface for booking data access
type BookingRepository interface {
	WithTx(q store.Querier) BookingRepository
	Insert(ctx context.Context, booking *domain.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus, cancelledAt *time.Time) error
	UpdateSlot(ctx context.Context, id uuid.UUID, slotStart time.Time, dateKey string, rescheduledFrom time.Time) error
	SetSaleLink(ctx context.Context, id uuid.UUID, purchased bool, saleID *uuid.UUID) error
	ListByDate(ctx context.Context, barberID uuid.UUID, dateKey string) ([]*domain.Booking, error)
}

type bookingRepository struct {
	db store.Querier
}

// NewBookingRepository creates a new instance of BookingRepository
func NewBookingRepository(db store.Querier) BookingRepository {
	return &bookingRepository{db: db}
}

// WithTx returns the repository bound to the given transaction
func (r *bookingRepository) WithTx(q store.Querier) BookingRepository {
	return &bookingRepository{db: q}
}

const bookingColumns = `id, barber_id, customer_id, service_type, slot_start, date_key, status,
	payment_method, products_purchased, product_sale_id, rescheduled_from, cancelled_at, created_at, updated_at`

func scanBooking(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Booking, error) {
	booking := &domain.Booking{}
	var paymentMethod sql.NullString
	var productSaleID uuid.NullUUID
	var rescheduledFrom, cancelledAt sql.NullTime

	err := row.Scan(
		&booking.ID,
		&booking.BarberID,
		&booking.CustomerID,
		&booking.ServiceType,
		&booking.SlotStart,
		&booking.DateKey,
		&booking.Status,
		&paymentMethod,
		&booking.ProductsPurchased,
		&productSaleID,
		&rescheduledFrom,
		&cancelledAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	booking.PaymentMethod = paymentMethod.String
	if productSaleID.Valid {
		booking.ProductSaleID = &productSaleID.UUID
	}
	if rescheduledFrom.Valid {
		t := rescheduledFrom.Time
		booking.RescheduledFrom = &t
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		booking.CancelledAt = &t
	}
	return booking, nil
}

// Insert writes a new booking
func (r *bookingRepository) Insert(ctx context.Context, booking *domain.Booking) error {
	query := `
		INSERT INTO bookings (id, barber_id, customer_id, service_type, slot_start, date_key, status,
			payment_method, products_purchased, product_sale_id, rescheduled_from, cancelled_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	var productSaleID interface{}
	if booking.ProductSaleID != nil {
		productSaleID = *booking.ProductSaleID
	}
	var rescheduledFrom interface{}
	if booking.RescheduledFrom != nil {
		rescheduledFrom = *booking.RescheduledFrom
	}
	var cancelledAt interface{}
	if booking.CancelledAt != nil {
		cancelledAt = *booking.CancelledAt
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		booking.ID,
		booking.BarberID,
		booking.CustomerID,
		booking.ServiceType,
		booking.SlotStart,
		booking.DateKey,
		booking.Status,
		booking.PaymentMethod,
		booking.ProductsPurchased,
		productSaleID,
		rescheduledFrom,
		cancelledAt,
		booking.CreatedAt,
		booking.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	return nil
}

// FindByID retrieves a booking by ID
func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to find booking by ID: %w", err)
	}

	return booking, nil
}

// UpdateStatus sets the booking status and, for cancellations, the
// cancellation timestamp
func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus, cancelledAt *time.Time) error {
	query := `UPDATE bookings SET status = $2, cancelled_at = $3, updated_at = now() WHERE id = $1`

	var ca interface{}
	if cancelledAt != nil {
		ca = *cancelledAt
	}

	result, err := r.db.ExecContext(ctx, query, id, status, ca)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}

	return requireRow(result, ErrBookingNotFound)
}

// UpdateSlot moves a booking to a new slot start, recording where it moved
// from
func (r *bookingRepository) UpdateSlot(ctx context.Context, id uuid.UUID, slotStart time.Time, dateKey string, rescheduledFrom time.Time) error {
	query := `
		UPDATE bookings
		SET slot_start = $2, date_key = $3, rescheduled_from = $4, updated_at = now()
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id, slotStart, dateKey, rescheduledFrom)
	if err != nil {
		return fmt.Errorf("failed to update booking slot: %w", err)
	}

	return requireRow(result, ErrBookingNotFound)
}

// SetSaleLink links or unlinks a product sale on the booking
func (r *bookingRepository) SetSaleLink(ctx context.Context, id uuid.UUID, purchased bool, saleID *uuid.UUID) error {
	query := `UPDATE bookings SET products_purchased = $2, product_sale_id = $3, updated_at = now() WHERE id = $1`

	var sid interface{}
	if saleID != nil {
		sid = *saleID
	}

	result, err := r.db.ExecContext(ctx, query, id, purchased, sid)
	if err != nil {
		return fmt.Errorf("failed to set booking sale link: %w", err)
	}

	return requireRow(result, ErrBookingNotFound)
}

// ListByDate retrieves all bookings for a barber on a given date key
func (r *bookingRepository) ListByDate(ctx context.Context, barberID uuid.UUID, dateKey string) ([]*domain.Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE barber_id = $1 AND date_key = $2
		ORDER BY slot_start ASC
	`

	rows, err := r.db.QueryContext(ctx, query, barberID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []*domain.Booking{}
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, nil
}

func requireRow(result sql.Result, missing error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return missing
	}
	return nil
}
