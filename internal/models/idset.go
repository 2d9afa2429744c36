package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// IDSet is a set of entity IDs stored as a JSON array column.
// It backs the denormalized back-reference arrays (User.Families,
// User.Appointments, Family.Appointments, ...) and keeps set semantics:
// Add and Remove are idempotent.
type IDSet []int64

// Contains reports whether id is present in the set.
func (s IDSet) Contains(id int64) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add returns the set with id present. Adding an existing id is a no-op.
func (s IDSet) Add(id int64) IDSet {
	if s.Contains(id) {
		return s
	}
	return append(s, id)
}

// Remove returns the set with id absent, leaving the receiver untouched.
// Removing a missing id is a no-op.
func (s IDSet) Remove(id int64) IDSet {
	out := make(IDSet, 0, len(s))
	for _, v := range s {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// Value implements driver.Valuer, encoding the set as a JSON array.
func (s IDSet) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]int64(s))
	if err != nil {
		return nil, fmt.Errorf("failed to encode id set: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner, decoding a JSON array column.
func (s *IDSet) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = IDSet{}
		return nil
	case []byte:
		return s.decode(v)
	case string:
		return s.decode([]byte(v))
	default:
		return fmt.Errorf("cannot scan id set from %T", src)
	}
}

func (s *IDSet) decode(data []byte) error {
	if len(data) == 0 {
		*s = IDSet{}
		return nil
	}
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("failed to decode id set: %w", err)
	}
	*s = IDSet(ids)
	return nil
}
