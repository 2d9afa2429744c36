package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"famride/internal/database"
	"famride/internal/models"
)

// AppointmentRepository handles database operations for appointments
type AppointmentRepository struct {
	db database.DBTX
}

// NewAppointmentRepository creates a new appointment repository
func NewAppointmentRepository(db database.DBTX) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// WithTx returns a copy of the repository that runs inside tx
func (r *AppointmentRepository) WithTx(tx *database.Tx) *AppointmentRepository {
	return &AppointmentRepository{db: tx}
}

const appointmentColumns = "id, user_id, driver_id, family_id, days, time_from, time_to, recurring, " +
	"location_from, location_to, status, review_id, created_by, created_at, updated_at"

func scanAppointment(row interface {
	Scan(dest ...interface{}) error
}) (*models.Appointment, error) {
	appt := &models.Appointment{}
	err := row.Scan(
		&appt.ID,
		&appt.UserID,
		&appt.DriverID,
		&appt.FamilyID,
		&appt.Days,
		&appt.TimeFrom,
		&appt.TimeTo,
		&appt.Recurring,
		&appt.LocationFrom,
		&appt.LocationTo,
		&appt.Status,
		&appt.ReviewID,
		&appt.CreatedBy,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return appt, nil
}

// CreateAppointment inserts a new appointment row and returns its id
func (r *AppointmentRepository) CreateAppointment(appt *models.Appointment) (int64, error) {
	query := `INSERT INTO appointments
		(user_id, driver_id, family_id, days, time_from, time_to, recurring,
		 location_from, location_to, status, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(query,
		appt.UserID, appt.DriverID, appt.FamilyID, appt.Days,
		appt.TimeFrom, appt.TimeTo, appt.Recurring,
		appt.LocationFrom, appt.LocationTo, appt.Status, appt.CreatedBy)
	if err != nil {
		return 0, fmt.Errorf("failed to create appointment: %w", err)
	}
	return id, nil
}

// GetAppointmentByID retrieves an appointment by ID, returning nil when absent
func (r *AppointmentRepository) GetAppointmentByID(appointmentID int64) (*models.Appointment, error) {
	query := "SELECT " + appointmentColumns + " FROM appointments WHERE id = ?"
	appt, err := scanAppointment(r.db.QueryRow(query, appointmentID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return appt, nil
}

// UpdateAppointment replaces the mutable fields of an appointment row
func (r *AppointmentRepository) UpdateAppointment(appt *models.Appointment) error {
	query := `UPDATE appointments SET
		driver_id = ?, days = ?, time_from = ?, time_to = ?, recurring = ?,
		location_from = ?, location_to = ?, status = ?, review_id = ?,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`
	if _, err := r.db.Exec(query,
		appt.DriverID, appt.Days, appt.TimeFrom, appt.TimeTo, appt.Recurring,
		appt.LocationFrom, appt.LocationTo, appt.Status, appt.ReviewID, appt.ID); err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}
	return nil
}

// DeleteAppointment deletes an appointment row
func (r *AppointmentRepository) DeleteAppointment(appointmentID int64) error {
	if _, err := r.db.Exec("DELETE FROM appointments WHERE id = ?", appointmentID); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

// ListByFamily retrieves all appointments belonging to a family
func (r *AppointmentRepository) ListByFamily(familyID int64) ([]models.Appointment, error) {
	query := "SELECT " + appointmentColumns + " FROM appointments WHERE family_id = ? ORDER BY id ASC"
	return r.list(query, familyID)
}

// ListAll retrieves every appointment ordered by id
func (r *AppointmentRepository) ListAll() ([]models.Appointment, error) {
	query := "SELECT " + appointmentColumns + " FROM appointments ORDER BY id ASC"
	return r.list(query)
}

// FindByDriverAndDays pre-filters appointments for the conflict checker:
// same driver, day set possibly intersecting days. The JSON day array is
// matched with per-day LIKE filters; the checker re-verifies the
// intersection exactly.
func (r *AppointmentRepository) FindByDriverAndDays(driverID int64, days models.DaySet) ([]models.Appointment, error) {
	if len(days) == 0 {
		return nil, nil
	}

	conditions := make([]string, 0, len(days))
	args := make([]interface{}, 0, len(days)+1)
	args = append(args, driverID)
	for _, day := range days {
		conditions = append(conditions, "days LIKE ?")
		args = append(args, `%"`+day+`"%`)
	}

	query := "SELECT " + appointmentColumns + " FROM appointments WHERE driver_id = ? AND (" +
		strings.Join(conditions, " OR ") + ") ORDER BY id ASC"
	return r.list(query, args...)
}

func (r *AppointmentRepository) list(query string, args ...interface{}) ([]models.Appointment, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var appts []models.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		appts = append(appts, *appt)
	}
	return appts, rows.Err()
}
