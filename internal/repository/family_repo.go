package repository

import (
	"database/sql"
	"fmt"

	"famride/internal/database"
	"famride/internal/models"
)

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db database.DBTX
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db database.DBTX) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// WithTx returns a copy of the repository that runs inside tx
func (r *FamilyRepository) WithTx(tx *database.Tx) *FamilyRepository {
	return &FamilyRepository{db: tx}
}

const familyColumns = "id, name, join_code, members, admins, drivers, appointments, created_at, updated_at"

func scanFamily(row interface {
	Scan(dest ...interface{}) error
}) (*models.Family, error) {
	family := &models.Family{}
	err := row.Scan(
		&family.ID,
		&family.Name,
		&family.JoinCode,
		&family.Members,
		&family.Admins,
		&family.Drivers,
		&family.Appointments,
		&family.CreatedAt,
		&family.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return family, nil
}

// CreateFamily inserts a new family row and returns its id
func (r *FamilyRepository) CreateFamily(family *models.Family) (int64, error) {
	query := "INSERT INTO families (name, join_code, members, admins, drivers, appointments) VALUES (?, ?, ?, ?, ?, '[]')"
	id, err := r.db.ExecReturningID(query,
		family.Name, family.JoinCode, family.Members, family.Admins, family.Drivers)
	if err != nil {
		return 0, fmt.Errorf("failed to create family: %w", err)
	}
	return id, nil
}

// GetFamilyByID retrieves a family by ID, returning nil when absent
func (r *FamilyRepository) GetFamilyByID(familyID int64) (*models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families WHERE id = ?"
	family, err := scanFamily(r.db.QueryRow(query, familyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetFamilyByJoinCode retrieves a family by its join code, returning nil when absent
func (r *FamilyRepository) GetFamilyByJoinCode(code string) (*models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families WHERE join_code = ?"
	family, err := scanFamily(r.db.QueryRow(query, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family by code: %w", err)
	}
	return family, nil
}

// ListFamilies retrieves all families ordered by id
func (r *FamilyRepository) ListFamilies() ([]models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families ORDER BY id ASC"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		family, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, *family)
	}
	return families, rows.Err()
}

// UpdateFamily replaces the family's name and membership lists
func (r *FamilyRepository) UpdateFamily(family *models.Family) error {
	query := "UPDATE families SET name = ?, members = ?, admins = ?, drivers = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query,
		family.Name, family.Members, family.Admins, family.Drivers, family.ID); err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}

// DeleteFamily deletes a family row
func (r *FamilyRepository) DeleteFamily(familyID int64) error {
	if _, err := r.db.Exec("DELETE FROM families WHERE id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return nil
}

// AddAppointment adds an appointment id to the family's appointments set (idempotent)
func (r *FamilyRepository) AddAppointment(familyID, appointmentID int64) error {
	return addToSet(r.db, "families", "appointments", familyID, appointmentID)
}

// RemoveAppointment removes an appointment id from the family's appointments set (idempotent)
func (r *FamilyRepository) RemoveAppointment(familyID, appointmentID int64) error {
	return pullFromSet(r.db, "families", "appointments", familyID, appointmentID)
}

// SetAppointments overwrites the family's appointment back-references; used
// by the reconciliation pass only.
func (r *FamilyRepository) SetAppointments(familyID int64, appointments models.IDSet) error {
	query := "UPDATE families SET appointments = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if _, err := r.db.Exec(query, appointments, familyID); err != nil {
		return fmt.Errorf("failed to set family appointments: %w", err)
	}
	return nil
}
