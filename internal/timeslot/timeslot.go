// Package timeslot holds the pure slot arithmetic the booking engine is
// built on. A slot is 30 minutes; its canonical id is the slot start
// formatted as YYYYMMDD_HHmm in the business timezone. Using the formatted
// start as the document key is what makes slot exclusivity enforceable with
// a plain uniqueness constraint.
package timeslot

import (
	"errors"
	"time"
)

// Duration is the fixed length of a slot.
const Duration = 30 * time.Minute

// ErrInvalidRange is returned when a range end does not lie after its start.
var ErrInvalidRange = errors.New("time range end must be after start")

const (
	idLayout      = "20060102_1504"
	dateKeyLayout = "2006-01-02"
)

// Truncate returns t snapped down to its enclosing 30-minute boundary in loc.
func Truncate(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), lt.Hour(), (lt.Minute()/30)*30, 0, 0, loc)
}

// SlotID derives the canonical slot id for t in loc.
func SlotID(t time.Time, loc *time.Location) string {
	return Truncate(t, loc).Format(idLayout)
}

// DateKey returns the YYYY-MM-DD partition key for t in loc.
func DateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateKeyLayout)
}

// IsAligned reports whether t sits exactly on a slot boundary in loc
// (minute 0 or 30, no seconds).
func IsAligned(t time.Time, loc *time.Location) bool {
	lt := t.In(loc)
	return (lt.Minute() == 0 || lt.Minute() == 30) && lt.Second() == 0 && lt.Nanosecond() == 0
}

// Enumerate returns the ordered, end-exclusive sequence of slot starts
// [start, start+30m, ...) while the current start is before end. It returns
// ErrInvalidRange when end is not after start.
func Enumerate(start, end time.Time) ([]time.Time, error) {
	if !end.After(start) {
		return nil, ErrInvalidRange
	}
	var slots []time.Time
	for cur := start; cur.Before(end); cur = cur.Add(Duration) {
		slots = append(slots, cur)
	}
	return slots, nil
}
