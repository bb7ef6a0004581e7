package service

import (
	"fmt"
	"time"

	"barberflow/internal/apperr"
	"barberflow/internal/domain"
	"barberflow/internal/timeslot"
)

// ScheduleValidator checks a slot start against a barber's working hours:
// the day must be active, the whole slot must fit between open and close,
// and the slot must not overlap a break.
type ScheduleValidator struct {
	loc *time.Location
}

// NewScheduleValidator creates a validator operating in the business
// timezone.
func NewScheduleValidator(loc *time.Location) *ScheduleValidator {
	return &ScheduleValidator{loc: loc}
}

// ValidateSlot returns nil when slotStart is bookable on the barber's
// schedule.
func (v *ScheduleValidator) ValidateSlot(barber *domain.Barber, slotStart time.Time) error {
	if !timeslot.IsAligned(slotStart, v.loc) {
		return apperr.InvalidArgument("slot start must align to a 30-minute boundary")
	}

	local := slotStart.In(v.loc)
	day, ok := barber.Schedule[local.Weekday()]
	if !ok || !day.Active {
		return apperr.FailedPrecondition("%s is not working on %s", barber.Name, local.Weekday())
	}

	open, err := minutesOfDay(day.Open)
	if err != nil {
		return apperr.Internal(err, "invalid schedule for barber")
	}
	close, err := minutesOfDay(day.Close)
	if err != nil {
		return apperr.Internal(err, "invalid schedule for barber")
	}

	start := local.Hour()*60 + local.Minute()
	end := start + int(timeslot.Duration.Minutes())

	if start < open || end > close {
		return apperr.FailedPrecondition("%s is outside working hours", local.Format("15:04"))
	}

	for _, br := range day.Breaks {
		brStart, err := minutesOfDay(br.Start)
		if err != nil {
			return apperr.Internal(err, "invalid schedule for barber")
		}
		brEnd, err := minutesOfDay(br.End)
		if err != nil {
			return apperr.Internal(err, "invalid schedule for barber")
		}
		if start < brEnd && end > brStart {
			return apperr.FailedPrecondition("%s falls inside a break", local.Format("15:04"))
		}
	}

	return nil
}

// IsDayOpen reports whether the barber works at all on the weekday of t.
func (v *ScheduleValidator) IsDayOpen(barber *domain.Barber, t time.Time) bool {
	day, ok := barber.Schedule[t.In(v.loc).Weekday()]
	return ok && day.Active
}

func minutesOfDay(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("bad time of day %q: %w", hhmm, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}
