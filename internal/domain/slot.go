package domain

import (
	"time"

	"github.com/google/uuid"
)

// SlotKind distinguishes what occupies a time slot.
type SlotKind string

const (
	SlotKindBooking SlotKind = "booking"
	SlotKindBlock   SlotKind = "block"
)

// Slot is the unit of occupancy for one barber. Its ID is derived
// deterministically from the slot start time (YYYYMMDD_HHmm), so the
// (barber_id, id) primary key doubles as the exclusivity lock: at most one
// row can ever exist per barber and half-hour.
type Slot struct {
	ID        string     `json:"id" db:"slot_id"`
	BarberID  uuid.UUID  `json:"barber_id" db:"barber_id"`
	SlotStart time.Time  `json:"slot_start" db:"slot_start"`
	DateKey   string     `json:"date_key" db:"date_key"`
	Kind      SlotKind   `json:"kind" db:"kind"`
	BookingID *uuid.UUID `json:"booking_id,omitempty" db:"booking_id"`
	Reason    string     `json:"reason,omitempty" db:"reason"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`
}
