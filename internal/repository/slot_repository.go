package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"barberflow/internal/domain"
	"barberflow/internal/store"

	"github.com/google/uuid"
)

var (
	ErrSlotNotFound = errors.New("slot not found")
	ErrSlotTaken    = errors.New("slot already taken")
)

// SlotRepository is the per-barber slot occupancy index. The primary key is
// (barber_id, slot_id) where slot_id is derived from the slot start time, so
// a duplicate insert means a lost occupancy race.
type SlotRepository interface {
	WithTx(q store.Querier) SlotRepository
	Get(ctx context.Context, barberID uuid.UUID, slotID string) (*domain.Slot, error)
	Insert(ctx context.Context, slot *domain.Slot) error
	Delete(ctx context.Context, barberID uuid.UUID, slotID string) error
	ListByDate(ctx context.Context, barberID uuid.UUID, dateKey string) ([]*domain.Slot, error)
}

type slotRepository struct {
	db store.Querier
}

// NewSlotRepository creates a new instance of SlotRepository
func NewSlotRepository(db store.Querier) SlotRepository {
	return &slotRepository{db: db}
}

// WithTx returns the repository bound to the given transaction
func (r *slotRepository) WithTx(q store.Querier) SlotRepository {
	return &slotRepository{db: q}
}

const slotColumns = `barber_id, slot_id, slot_start, date_key, kind, booking_id, reason, created_at, updated_at`

func scanSlot(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Slot, error) {
	slot := &domain.Slot{}
	var bookingID uuid.NullUUID
	var reason sql.NullString
	err := row.Scan(
		&slot.BarberID,
		&slot.ID,
		&slot.SlotStart,
		&slot.DateKey,
		&slot.Kind,
		&bookingID,
		&reason,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if bookingID.Valid {
		slot.BookingID = &bookingID.UUID
	}
	slot.Reason = reason.String
	return slot, nil
}

// Get retrieves a slot by its natural key
func (r *slotRepository) Get(ctx context.Context, barberID uuid.UUID, slotID string) (*domain.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE barber_id = $1 AND slot_id = $2`

	slot, err := scanSlot(r.db.QueryRowContext(ctx, query, barberID, slotID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}

	return slot, nil
}

// Insert writes a new slot. A unique violation on the natural key is
// reported as ErrSlotTaken.
func (r *slotRepository) Insert(ctx context.Context, slot *domain.Slot) error {
	query := `
		INSERT INTO slots (barber_id, slot_id, slot_start, date_key, kind, booking_id, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var bookingID interface{}
	if slot.BookingID != nil {
		bookingID = *slot.BookingID
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		slot.BarberID,
		slot.ID,
		slot.SlotStart,
		slot.DateKey,
		slot.Kind,
		bookingID,
		slot.Reason,
		slot.CreatedAt,
		slot.UpdatedAt,
	)

	if err != nil {
		if store.IsUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to insert slot: %w", err)
	}

	return nil
}

// Delete removes a slot by its natural key
func (r *slotRepository) Delete(ctx context.Context, barberID uuid.UUID, slotID string) error {
	query := `DELETE FROM slots WHERE barber_id = $1 AND slot_id = $2`

	result, err := r.db.ExecContext(ctx, query, barberID, slotID)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSlotNotFound
	}

	return nil
}

// ListByDate retrieves all slots for a barber on a given date key, ordered
// by start time
func (r *slotRepository) ListByDate(ctx context.Context, barberID uuid.UUID, dateKey string) ([]*domain.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE barber_id = $1 AND date_key = $2
		ORDER BY slot_start ASC
	`

	rows, err := r.db.QueryContext(ctx, query, barberID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	defer rows.Close()

	slots := []*domain.Slot{}
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slots: %w", err)
	}

	return slots, nil
}
