package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"barberflow/internal/domain"
	"barberflow/internal/store"

	"github.com/google/uuid"
)

var (
	ErrBarberNotFound = errors.New("barber not found")
)

// BarberRepository defines the interface for barber data access. The weekly
// schedule lives in a JSONB column.
type BarberRepository interface {
	Create(ctx context.Context, barber *domain.Barber) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Barber, error)
	List(ctx context.Context) ([]*domain.Barber, error)
	UpdateSchedule(ctx context.Context, id uuid.UUID, schedule domain.WeekSchedule) error
}

type barberRepository struct {
	db store.Querier
}

// NewBarberRepository creates a new instance of BarberRepository
func NewBarberRepository(db store.Querier) BarberRepository {
	return &barberRepository{db: db}
}

// Create inserts a new barber
func (r *barberRepository) Create(ctx context.Context, barber *domain.Barber) error {
	schedule, err := json.Marshal(barber.Schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	query := `
		INSERT INTO barbers (id, name, role, schedule, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.db.ExecContext(ctx, query, barber.ID, barber.Name, barber.Role, schedule, barber.Active, barber.CreatedAt, barber.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create barber: %w", err)
	}

	return nil
}

// FindByID retrieves a barber by ID
func (r *barberRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Barber, error) {
	query := `SELECT id, name, role, schedule, active, created_at, updated_at FROM barbers WHERE id = $1`

	barber, err := scanBarber(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBarberNotFound
		}
		return nil, fmt.Errorf("failed to find barber by ID: %w", err)
	}

	return barber, nil
}

// List retrieves all active barbers
func (r *barberRepository) List(ctx context.Context) ([]*domain.Barber, error) {
	query := `SELECT id, name, role, schedule, active, created_at, updated_at FROM barbers WHERE active = true ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list barbers: %w", err)
	}
	defer rows.Close()

	barbers := []*domain.Barber{}
	for rows.Next() {
		barber, err := scanBarber(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan barber: %w", err)
		}
		barbers = append(barbers, barber)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating barbers: %w", err)
	}

	return barbers, nil
}

// UpdateSchedule replaces the barber's weekly schedule
func (r *barberRepository) UpdateSchedule(ctx context.Context, id uuid.UUID, schedule domain.WeekSchedule) error {
	raw, err := json.Marshal(schedule)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `UPDATE barbers SET schedule = $2, updated_at = now() WHERE id = $1`, id, raw)
	if err != nil {
		return fmt.Errorf("failed to update barber schedule: %w", err)
	}

	return requireRow(result, ErrBarberNotFound)
}

func scanBarber(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Barber, error) {
	barber := &domain.Barber{}
	var schedule []byte

	err := row.Scan(&barber.ID, &barber.Name, &barber.Role, &schedule, &barber.Active, &barber.CreatedAt, &barber.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(schedule) > 0 {
		if err := json.Unmarshal(schedule, &barber.Schedule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
		}
	}
	return barber, nil
}
