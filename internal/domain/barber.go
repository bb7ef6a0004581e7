package domain

import (
	"time"

	"github.com/google/uuid"
)

// Barber roles. The owner sells with zero commission and may administer
// every barber's calendar and the product catalog.
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleBarber = "barber"
)

// BreakWindow is a pause inside a working day, "HH:MM" local time.
type BreakWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DaySchedule describes one weekday of a barber's working hours.
type DaySchedule struct {
	Active bool          `json:"active"`
	Open   string        `json:"open"`
	Close  string        `json:"close"`
	Breaks []BreakWindow `json:"breaks,omitempty"`
}

// WeekSchedule maps weekday (0=Sunday .. 6=Saturday) to its schedule.
// Stored as a JSONB column. A missing or inactive day is closed.
type WeekSchedule map[time.Weekday]DaySchedule

// Barber is a staff member with their own calendar of slots.
type Barber struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	Name      string       `json:"name" db:"name"`
	Role      string       `json:"role" db:"role"`
	Schedule  WeekSchedule `json:"schedule"`
	Active    bool         `json:"active" db:"active"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt time.Time    `json:"updated_at" db:"updated_at"`
}
