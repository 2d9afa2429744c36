package models

import "time"

// User roles
const (
	RoleUser   = "user"
	RoleDriver = "driver"
)

// User represents an account in the system. Families and Appointments are
// denormalized back-reference arrays whose source of truth is the family and
// appointment tables; only the relationship ledger mutates them.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         string    `json:"role"` // 'user' or 'driver'
	Families     IDSet     `json:"families"`
	Appointments IDSet     `json:"appointments"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
