package domain

import (
	"time"

	"github.com/google/uuid"
)

// SaleItem is a snapshot of a product at sale time. Name, unit price and
// commission are copied so later product edits never change historical
// totals.
type SaleItem struct {
	ProductID      uuid.UUID `json:"product_id" db:"product_id"`
	ProductName    string    `json:"product_name" db:"product_name"`
	UnitPriceCents int64     `json:"unit_price_cents" db:"unit_price_cents"`
	Quantity       int       `json:"quantity" db:"quantity"`
	CommissionPct  float64   `json:"commission_pct" db:"commission_pct"`
}

// LineTotalCents returns the item subtotal before discount.
func (i SaleItem) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// Sale is immutable once written. Deleting a sale reverses its effects in a
// compensating transaction; it never edits the sale in place.
type Sale struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	BarberID        uuid.UUID  `json:"barber_id" db:"barber_id"`
	CustomerID      *uuid.UUID `json:"customer_id,omitempty" db:"customer_id"`
	BookingID       *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`
	Items           []SaleItem `json:"items"`
	PaymentMethod   string     `json:"payment_method" db:"payment_method"`
	Origin          string     `json:"origin,omitempty" db:"origin"`
	SubtotalCents   int64      `json:"subtotal_cents" db:"subtotal_cents"`
	DiscountCents   int64      `json:"discount_cents" db:"discount_cents"`
	TotalCents      int64      `json:"total_cents" db:"total_cents"`
	CommissionCents int64      `json:"commission_cents" db:"commission_cents"`
	CreatedBy       string     `json:"created_by" db:"created_by"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}
