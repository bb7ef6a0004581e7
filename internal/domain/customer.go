package domain

import (
	"time"

	"github.com/google/uuid"
)

// CustomerStats are rolling aggregates mutated only as a side effect of
// booking and sale transactions, never directly.
type CustomerStats struct {
	TotalBookings     int        `json:"total_bookings" db:"total_bookings"`
	CompletedBookings int        `json:"completed_bookings" db:"completed_bookings"`
	CancelledBookings int        `json:"cancelled_bookings" db:"cancelled_bookings"`
	TotalPurchases    int        `json:"total_purchases" db:"total_purchases"`
	TotalSpentCents   int64      `json:"total_spent_cents" db:"total_spent_cents"`
	LastBookingAt     *time.Time `json:"last_booking_at,omitempty" db:"last_booking_at"`
	LastPurchaseAt    *time.Time `json:"last_purchase_at,omitempty" db:"last_purchase_at"`
}

// Customer is identified by their WhatsApp number, which is unique.
type Customer struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	FirstName string        `json:"first_name" db:"first_name"`
	LastName  string        `json:"last_name" db:"last_name"`
	Whatsapp  string        `json:"whatsapp" db:"whatsapp"`
	Stats     CustomerStats `json:"stats"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}
