package repository

import (
	"database/sql"
	"fmt"

	"famride/internal/database"
	"famride/internal/models"
)

// UserRepository handles database operations for users
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// WithTx returns a copy of the repository that runs inside tx
func (r *UserRepository) WithTx(tx *database.Tx) *UserRepository {
	return &UserRepository{db: tx}
}

const userColumns = "id, email, password_hash, name, role, families, appointments, created_at, updated_at"

func scanUser(row interface {
	Scan(dest ...interface{}) error
}) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&user.Role,
		&user.Families,
		&user.Appointments,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a new user with empty back-reference arrays
func (r *UserRepository) CreateUser(email, passwordHash, name, role string) (*models.User, error) {
	query := "INSERT INTO users (email, password_hash, name, role, families, appointments) VALUES (?, ?, ?, ?, '[]', '[]')"
	id, err := r.db.ExecReturningID(query, email, passwordHash, name, role)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return r.GetUserByID(id)
}

// GetUserByID retrieves a user by ID, returning nil when absent
func (r *UserRepository) GetUserByID(userID int64) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE id = ?"
	user, err := scanUser(r.db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email, returning nil when absent
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	query := "SELECT " + userColumns + " FROM users WHERE email = ?"
	user, err := scanUser(r.db.QueryRow(query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// ListUsers retrieves all users ordered by id
func (r *UserRepository) ListUsers() ([]models.User, error) {
	query := "SELECT " + userColumns + " FROM users ORDER BY id ASC"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// AddFamily adds a family id to the user's families set (idempotent)
func (r *UserRepository) AddFamily(userID, familyID int64) error {
	return addToSet(r.db, "users", "families", userID, familyID)
}

// RemoveFamily removes a family id from the user's families set (idempotent)
func (r *UserRepository) RemoveFamily(userID, familyID int64) error {
	return pullFromSet(r.db, "users", "families", userID, familyID)
}

// AddAppointment adds an appointment id to the user's appointments set (idempotent)
func (r *UserRepository) AddAppointment(userID, appointmentID int64) error {
	return addToSet(r.db, "users", "appointments", userID, appointmentID)
}

// RemoveAppointment removes an appointment id from the user's appointments set (idempotent)
func (r *UserRepository) RemoveAppointment(userID, appointmentID int64) error {
	return pullFromSet(r.db, "users", "appointments", userID, appointmentID)
}

// SetBackReferences overwrites both back-reference arrays; used by the
// reconciliation pass only.
func (r *UserRepository) SetBackReferences(userID int64, families, appointments models.IDSet) error {
	query := "UPDATE users SET families = ?, appointments = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, families, appointments, userID); err != nil {
		return fmt.Errorf("failed to set user back-references: %w", err)
	}
	return nil
}
