package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"barberflow/internal/domain"
	"barberflow/internal/store"
)

// productSettingsKey is the fixed primary key of the singleton settings row.
const productSettingsKey = "products"

// SettingsRepository reads and writes the singleton product settings row.
type SettingsRepository interface {
	GetProductSettings(ctx context.Context) (*domain.ProductSettings, error)
	UpdateProductSettings(ctx context.Context, settings *domain.ProductSettings) error
}

type settingsRepository struct {
	db store.Querier
}

// NewSettingsRepository creates a new instance of SettingsRepository
func NewSettingsRepository(db store.Querier) SettingsRepository {
	return &settingsRepository{db: db}
}

// GetProductSettings retrieves the settings row, falling back to defaults
// when it has never been written.
func (r *settingsRepository) GetProductSettings(ctx context.Context) (*domain.ProductSettings, error) {
	query := `
		SELECT default_commission_pct, low_stock_alert_enabled, low_stock_whatsapp_enabled,
			block_sale_on_zero_stock, updated_at
		FROM settings
		WHERE id = $1
	`

	settings := &domain.ProductSettings{}
	err := r.db.QueryRowContext(ctx, query, productSettingsKey).Scan(
		&settings.DefaultCommissionPct,
		&settings.LowStockAlertEnabled,
		&settings.LowStockWhatsappEnabled,
		&settings.BlockSaleOnZeroStock,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &domain.ProductSettings{}, nil
		}
		return nil, fmt.Errorf("failed to get product settings: %w", err)
	}

	return settings, nil
}

// UpdateProductSettings upserts the settings row
func (r *settingsRepository) UpdateProductSettings(ctx context.Context, settings *domain.ProductSettings) error {
	query := `
		INSERT INTO settings (id, default_commission_pct, low_stock_alert_enabled,
			low_stock_whatsapp_enabled, block_sale_on_zero_stock, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			default_commission_pct = EXCLUDED.default_commission_pct,
			low_stock_alert_enabled = EXCLUDED.low_stock_alert_enabled,
			low_stock_whatsapp_enabled = EXCLUDED.low_stock_whatsapp_enabled,
			block_sale_on_zero_stock = EXCLUDED.block_sale_on_zero_stock,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		productSettingsKey,
		settings.DefaultCommissionPct,
		settings.LowStockAlertEnabled,
		settings.LowStockWhatsappEnabled,
		settings.BlockSaleOnZeroStock,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update product settings: %w", err)
	}

	return nil
}
