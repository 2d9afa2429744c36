package schedule

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidTimeFormat is returned when a wall-clock string is not "HH:mm".
var ErrInvalidTimeFormat = errors.New("invalid time format, expected HH:mm")

// ClockMinutes converts a wall-clock "HH:mm" string into minutes since
// local midnight. There is no date or timezone component; the result is
// only comparable within a single calendar day.
func ClockMinutes(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, clock)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, clock)
	}

	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeFormat, clock)
	}

	return hours*60 + minutes, nil
}

// Overlaps reports whether the half-open intervals [fromA, toA) and
// [fromB, toB) share any point. Touching endpoints do not overlap.
func Overlaps(fromA, toA, fromB, toB int) bool {
	return fromA < toB && toA > fromB
}
