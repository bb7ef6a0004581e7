package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusBooked    BookingStatus = "booked"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusNoShow    BookingStatus = "no_show"
)

// Booking is an appointment held by a customer with a barber. For every
// non-cancelled booking there is exactly one booking-kind slot whose id is
// derived from SlotStart and whose booking_id points back here.
type Booking struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	BarberID          uuid.UUID     `json:"barber_id" db:"barber_id"`
	CustomerID        uuid.UUID     `json:"customer_id" db:"customer_id"`
	ServiceType       string        `json:"service_type" db:"service_type"`
	SlotStart         time.Time     `json:"slot_start" db:"slot_start"`
	DateKey           string        `json:"date_key" db:"date_key"`
	Status            BookingStatus `json:"status" db:"status"`
	PaymentMethod     string        `json:"payment_method,omitempty" db:"payment_method"`
	ProductsPurchased bool          `json:"products_purchased" db:"products_purchased"`
	ProductSaleID     *uuid.UUID    `json:"product_sale_id,omitempty" db:"product_sale_id"`
	RescheduledFrom   *time.Time    `json:"rescheduled_from,omitempty" db:"rescheduled_from"`
	CancelledAt       *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt         time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at" db:"updated_at"`
}

// CanTransitionTo reports whether the status change is allowed by the
// booking state machine.
func (b *Booking) CanTransitionTo(next BookingStatus) bool {
	switch b.Status {
	case BookingStatusBooked:
		return next == BookingStatusConfirmed ||
			next == BookingStatusCompleted ||
			next == BookingStatusCancelled ||
			next == BookingStatusNoShow
	case BookingStatusConfirmed:
		return next == BookingStatusCompleted ||
			next == BookingStatusCancelled ||
			next == BookingStatusNoShow
	default:
		return false
	}
}
