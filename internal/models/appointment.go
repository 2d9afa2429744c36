package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Appointment statuses
const (
	StatusUpcoming = "upcoming"
	StatusOngoing  = "ongoing"
	StatusDone     = "done"
)

// Weekdays lists the canonical lowercase weekday codes in calendar order.
var Weekdays = []string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// ValidWeekday reports whether code is one of the seven canonical codes.
func ValidWeekday(code string) bool {
	for _, day := range Weekdays {
		if day == code {
			return true
		}
	}
	return false
}

// DaySet is a set of lowercase weekday codes stored as a JSON array column.
type DaySet []string

// NormalizeDays lower-cases and de-duplicates days, preserving first
// occurrence order. It does not validate the codes; see validation.
func NormalizeDays(days []string) DaySet {
	seen := make(map[string]bool, len(days))
	out := make(DaySet, 0, len(days))
	for _, day := range days {
		day = strings.ToLower(strings.TrimSpace(day))
		if day == "" || seen[day] {
			continue
		}
		seen[day] = true
		out = append(out, day)
	}
	return out
}

// Contains reports whether day is present in the set.
func (s DaySet) Contains(day string) bool {
	for _, d := range s {
		if d == day {
			return true
		}
	}
	return false
}

// Intersect returns the days present in both sets.
func (s DaySet) Intersect(other DaySet) DaySet {
	var out DaySet
	for _, d := range s {
		if other.Contains(d) {
			out = append(out, d)
		}
	}
	return out
}

// Value implements driver.Valuer, encoding the set as a JSON array.
func (s DaySet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(s))
	if err != nil {
		return nil, fmt.Errorf("failed to encode day set: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner, decoding a JSON array column.
func (s *DaySet) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*s = DaySet{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan day set from %T", src)
	}
	var days []string
	if err := json.Unmarshal(data, &days); err != nil {
		return fmt.Errorf("failed to decode day set: %w", err)
	}
	*s = DaySet(days)
	return nil
}

// Appointment books a driver for a rider on a weekly day pattern within a
// wall-clock time window. It is the authoritative relation; the id arrays on
// User and Family are derived from it.
type Appointment struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"` // rider
	DriverID     int64     `json:"driver_id"`
	FamilyID     int64     `json:"family_id"`
	Days         DaySet    `json:"days"`
	TimeFrom     string    `json:"time_from"` // "HH:mm"
	TimeTo       string    `json:"time_to"`   // "HH:mm"
	Recurring    bool      `json:"recurring"`
	LocationFrom string    `json:"location_from"`
	LocationTo   string    `json:"location_to"`
	Status       string    `json:"status"` // 'upcoming', 'ongoing' or 'done'
	ReviewID     *int64    `json:"review_id"`
	CreatedBy    int64     `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
