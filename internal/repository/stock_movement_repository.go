package repository

import (
	"context"
	"fmt"

	"barberflow/internal/domain"
	"barberflow/internal/store"

	"github.com/google/uuid"
)

// StockMovementRepository is the append-only stock ledger. There is no
// update or delete: reversals append compensating entries.
type StockMovementRepository interface {
	WithTx(q store.Querier) StockMovementRepository
	Insert(ctx context.Context, movement *domain.StockMovement) error
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]*domain.StockMovement, error)
}

type stockMovementRepository struct {
	db store.Querier
}

// NewStockMovementRepository creates a new instance of StockMovementRepository
func NewStockMovementRepository(db store.Querier) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

// WithTx returns the repository bound to the given transaction
func (r *stockMovementRepository) WithTx(q store.Querier) StockMovementRepository {
	return &stockMovementRepository{db: q}
}

// Insert appends a ledger entry
func (r *stockMovementRepository) Insert(ctx context.Context, movement *domain.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, product_id, type, quantity, previous_quantity, new_quantity,
			reason, sale_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var saleID interface{}
	if movement.SaleID != nil {
		saleID = *movement.SaleID
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		movement.ID,
		movement.ProductID,
		movement.Type,
		movement.Quantity,
		movement.PreviousQuantity,
		movement.NewQuantity,
		movement.Reason,
		saleID,
		movement.CreatedBy,
		movement.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert stock movement: %w", err)
	}

	return nil
}

// ListByProduct retrieves the most recent ledger entries for a product
func (r *stockMovementRepository) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]*domain.StockMovement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, product_id, type, quantity, previous_quantity, new_quantity,
			reason, sale_id, created_by, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	defer rows.Close()

	movements := []*domain.StockMovement{}
	for rows.Next() {
		movement := &domain.StockMovement{}
		var saleID uuid.NullUUID
		err := rows.Scan(
			&movement.ID,
			&movement.ProductID,
			&movement.Type,
			&movement.Quantity,
			&movement.PreviousQuantity,
			&movement.NewQuantity,
			&movement.Reason,
			&saleID,
			&movement.CreatedBy,
			&movement.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		if saleID.Valid {
			movement.SaleID = &saleID.UUID
		}
		movements = append(movements, movement)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stock movements: %w", err)
	}

	return movements, nil
}
