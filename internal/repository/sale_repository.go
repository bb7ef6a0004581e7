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
	ErrSaleNotFound = errors.New("sale not found")
)

// SaleRepository defines the interface for sale data access. Sales are
// written once with their item snapshots and never updated; deletion removes
// the rows while the compensating stock movements preserve history.
type SaleRepository interface {
	WithTx(q store.Querier) SaleRepository
	Insert(ctx context.Context, sale *domain.Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDate(ctx context.Context, barberID uuid.UUID, dateKey string) ([]*domain.Sale, error)
}

type saleRepository struct {
	db store.Querier
}

// NewSaleRepository creates a new instance of SaleRepository
func NewSaleRepository(db store.Querier) SaleRepository {
	return &saleRepository{db: db}
}

// WithTx returns the repository bound to the given transaction
func (r *saleRepository) WithTx(q store.Querier) SaleRepository {
	return &saleRepository{db: q}
}

const saleColumns = `id, barber_id, customer_id, booking_id, payment_method, origin,
	subtotal_cents, discount_cents, total_cents, commission_cents, created_by, created_at`

// Insert writes the sale and its item snapshots
func (r *saleRepository) Insert(ctx context.Context, sale *domain.Sale) error {
	query := `
		INSERT INTO sales (id, barber_id, customer_id, booking_id, payment_method, origin,
			subtotal_cents, discount_cents, total_cents, commission_cents, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var customerID, bookingID interface{}
	if sale.CustomerID != nil {
		customerID = *sale.CustomerID
	}
	if sale.BookingID != nil {
		bookingID = *sale.BookingID
	}

	_, err := r.db.ExecContext(
		ctx,
		query,
		sale.ID,
		sale.BarberID,
		customerID,
		bookingID,
		sale.PaymentMethod,
		sale.Origin,
		sale.SubtotalCents,
		sale.DiscountCents,
		sale.TotalCents,
		sale.CommissionCents,
		sale.CreatedBy,
		sale.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	itemQuery := `
		INSERT INTO sale_items (sale_id, product_id, product_name, unit_price_cents, quantity, commission_pct)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	for _, item := range sale.Items {
		_, err := r.db.ExecContext(
			ctx,
			itemQuery,
			sale.ID,
			item.ProductID,
			item.ProductName,
			item.UnitPriceCents,
			item.Quantity,
			item.CommissionPct,
		)
		if err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}
	}

	return nil
}

// FindByID retrieves a sale and its items
func (r *saleRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE id = $1`

	sale, err := scanSale(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSaleNotFound
		}
		return nil, fmt.Errorf("failed to find sale by ID: %w", err)
	}

	items, err := r.loadItems(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items

	return sale, nil
}

// Delete removes a sale and its items
func (r *saleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete sale items: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sale: %w", err)
	}

	return requireRow(result, ErrSaleNotFound)
}

// ListByDate retrieves all sales for a barber on a given calendar date
func (r *saleRepository) ListByDate(ctx context.Context, barberID uuid.UUID, dateKey string) ([]*domain.Sale, error) {
	query := `
		SELECT ` + saleColumns + `
		FROM sales
		WHERE barber_id = $1 AND created_at::date = $2::date
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, barberID, dateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	defer rows.Close()

	sales := []*domain.Sale{}
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}

	for _, sale := range sales {
		items, err := r.loadItems(ctx, sale.ID)
		if err != nil {
			return nil, err
		}
		sale.Items = items
	}

	return sales, nil
}

func (r *saleRepository) loadItems(ctx context.Context, saleID uuid.UUID) ([]domain.SaleItem, error) {
	query := `
		SELECT product_id, product_name, unit_price_cents, quantity, commission_pct
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY product_name ASC
	`

	rows, err := r.db.QueryContext(ctx, query, saleID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale items: %w", err)
	}
	defer rows.Close()

	items := []domain.SaleItem{}
	for rows.Next() {
		var item domain.SaleItem
		err := rows.Scan(&item.ProductID, &item.ProductName, &item.UnitPriceCents, &item.Quantity, &item.CommissionPct)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sale items: %w", err)
	}

	return items, nil
}

func scanSale(row interface {
	Scan(dest ...interface{}) error
}) (*domain.Sale, error) {
	sale := &domain.Sale{}
	var customerID, bookingID uuid.NullUUID
	var origin sql.NullString

	err := row.Scan(
		&sale.ID,
		&sale.BarberID,
		&customerID,
		&bookingID,
		&sale.PaymentMethod,
		&origin,
		&sale.SubtotalCents,
		&sale.DiscountCents,
		&sale.TotalCents,
		&sale.CommissionCents,
		&sale.CreatedBy,
		&sale.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if customerID.Valid {
		sale.CustomerID = &customerID.UUID
	}
	if bookingID.Valid {
		sale.BookingID = &bookingID.UUID
	}
	sale.Origin = origin.String
	return sale, nil
}
