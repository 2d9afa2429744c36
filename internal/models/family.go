package models

import "time"

// Family represents a group of riders and drivers scheduling together.
// Members, Admins and Drivers are the authoritative membership lists;
// Appointments is a back-reference array maintained by the ledger.
type Family struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	JoinCode     string    `json:"join_code"`
	Members      IDSet     `json:"members"`
	Admins       IDSet     `json:"admins"`
	Drivers      IDSet     `json:"drivers"`
	Appointments IDSet     `json:"appointments"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user administers this family.
func (f *Family) IsAdmin(userID int64) bool {
	return f.Admins.Contains(userID)
}

// IsMember reports whether the user belongs to this family.
func (f *Family) IsMember(userID int64) bool {
	return f.Members.Contains(userID)
}
