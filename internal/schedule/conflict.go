package schedule

import (
	"context"
	"errors"
	"fmt"

	"famride/internal/models"
)

// ErrDriverConflict is returned when a driver already has an appointment
// whose days and time window overlap the candidate's.
var ErrDriverConflict = errors.New("driver already has an overlapping appointment on overlapping days")

// Candidate describes a proposed booking to check against a driver's
// existing appointments.
type Candidate struct {
	DriverID int64
	Days     models.DaySet
	TimeFrom string
	TimeTo   string
}

// FindFunc queries a driver's existing appointments whose day sets may
// intersect days. It is a pre-filter; the checker re-verifies intersection
// and time overlap on every returned appointment.
type FindFunc func(ctx context.Context, driverID int64, days models.DaySet) ([]models.Appointment, error)

// Checker detects driver double-bookings. Conflict is driver-centric:
// riders are never checked for overlapping bookings.
type Checker struct {
	findExisting FindFunc
}

// NewChecker creates a conflict checker over the given appointment query.
func NewChecker(findExisting FindFunc) *Checker {
	return &Checker{findExisting: findExisting}
}

// Check rejects the candidate with ErrDriverConflict if any existing
// appointment for the same driver shares a weekday and overlaps in time.
// An excludeID > 0 skips that appointment, so an updated booking is not
// compared against itself.
func (c *Checker) Check(ctx context.Context, candidate Candidate, excludeID int64) error {
	newFrom, err := ClockMinutes(candidate.TimeFrom)
	if err != nil {
		return err
	}
	newTo, err := ClockMinutes(candidate.TimeTo)
	if err != nil {
		return err
	}

	existing, err := c.findExisting(ctx, candidate.DriverID, candidate.Days)
	if err != nil {
		return fmt.Errorf("failed to load driver appointments: %w", err)
	}

	for _, appt := range existing {
		if appt.ID == excludeID {
			continue
		}
		if len(appt.Days.Intersect(candidate.Days)) == 0 {
			continue
		}

		from, err := ClockMinutes(appt.TimeFrom)
		if err != nil {
			return fmt.Errorf("stored appointment %d has bad time: %w", appt.ID, err)
		}
		to, err := ClockMinutes(appt.TimeTo)
		if err != nil {
			return fmt.Errorf("stored appointment %d has bad time: %w", appt.ID, err)
		}

		if Overlaps(newFrom, newTo, from, to) {
			return fmt.Errorf("%w: appointment %d", ErrDriverConflict, appt.ID)
		}
	}

	return nil
}
