package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a retail product sold at the shop counter.
// StockQuantity is never written directly: only sale and stock-movement
// transactions may change it.
type Product struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	CategoryID    uuid.UUID `json:"category_id" db:"category_id"`
	PriceCents    int64     `json:"price_cents" db:"price_cents"`
	StockQuantity int       `json:"stock_quantity" db:"stock_quantity"`
	MinStockAlert int       `json:"min_stock_alert" db:"min_stock_alert"`
	CommissionPct float64   `json:"commission_pct" db:"commission_pct"`
	Active        bool      `json:"active" db:"active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Category represents a product category
type Category struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ProductSettings is the singleton configuration row governing sales and
// stock alerts.
type ProductSettings struct {
	DefaultCommissionPct    float64   `json:"default_commission_pct" db:"default_commission_pct"`
	LowStockAlertEnabled    bool      `json:"low_stock_alert_enabled" db:"low_stock_alert_enabled"`
	LowStockWhatsappEnabled bool      `json:"low_stock_whatsapp_enabled" db:"low_stock_whatsapp_enabled"`
	BlockSaleOnZeroStock    bool      `json:"block_sale_on_zero_stock" db:"block_sale_on_zero_stock"`
	UpdatedAt               time.Time `json:"updated_at" db:"updated_at"`
}
