package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"famride/internal/models"
	"famride/internal/schedule"
)

// ErrInvalid is the root of every validation failure, so callers can
// classify them with a single errors.Is check.
var ErrInvalid = errors.New("invalid input")

var (
	ErrEmptyDays      = fmt.Errorf("%w: days is required and must not be empty", ErrInvalid)
	ErrInvalidWeekday = fmt.Errorf("%w: days must contain only sun..sat weekday codes", ErrInvalid)
	ErrEmptyWindow    = fmt.Errorf("%w: time window must end after it starts", ErrInvalid)
)

var emailRegexp = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateEmail checks that email looks like a deliverable address.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalid)
	}
	if !emailRegexp.MatchString(email) {
		return fmt.Errorf("%w: email is not valid", ErrInvalid)
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalid)
	}
	return nil
}

// ValidateName checks that a display name is usable.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return fmt.Errorf("%w: name must be at least 2 characters", ErrInvalid)
	}
	return nil
}

// ValidateDays normalizes and validates a weekday list: non-empty and
// drawn from the seven canonical lowercase codes. Returns the normalized
// set on success.
func ValidateDays(days []string) (models.DaySet, error) {
	normalized := models.NormalizeDays(days)
	if len(normalized) == 0 {
		return nil, ErrEmptyDays
	}
	for _, day := range normalized {
		if !models.ValidWeekday(day) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidWeekday, day)
		}
	}
	return normalized, nil
}

// ValidateTimeWindow checks both wall-clock strings and that the window
// has positive length.
func ValidateTimeWindow(timeFrom, timeTo string) error {
	from, err := schedule.ClockMinutes(timeFrom)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	to, err := schedule.ClockMinutes(timeTo)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if from >= to {
		return ErrEmptyWindow
	}
	return nil
}
