package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"famride/internal/database"
	"famride/internal/models"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version      string              `json:"version"`
	ExportedAt   time.Time           `json:"exported_at"`
	DatabaseType string              `json:"database_type"`
	Users        []UserBackup        `json:"users"`
	Families     []FamilyBackup      `json:"families"`
	Appointments []AppointmentBackup `json:"appointments"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID           int64         `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"password_hash"`
	Name         string        `json:"name"`
	Role         string        `json:"role"`
	Families     models.IDSet  `json:"families"`
	Appointments models.IDSet  `json:"appointments"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// FamilyBackup represents a family record for backup
type FamilyBackup struct {
	ID           int64        `json:"id"`
	Name         string       `json:"name"`
	JoinCode     string       `json:"join_code"`
	Members      models.IDSet `json:"members"`
	Admins       models.IDSet `json:"admins"`
	Drivers      models.IDSet `json:"drivers"`
	Appointments models.IDSet `json:"appointments"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// AppointmentBackup represents an appointment record for backup
type AppointmentBackup struct {
	ID           int64         `json:"id"`
	UserID       int64         `json:"user_id"`
	DriverID     int64         `json:"driver_id"`
	FamilyID     int64         `json:"family_id"`
	Days         models.DaySet `json:"days"`
	TimeFrom     string        `json:"time_from"`
	TimeTo       string        `json:"time_to"`
	Recurring    bool          `json:"recurring"`
	LocationFrom string        `json:"location_from"`
	LocationTo   string        `json:"location_to"`
	Status       string        `json:"status"`
	ReviewID     *int64        `json:"review_id"`
	CreatedBy    int64         `json:"created_by"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	log.Info().Msg("starting database export")

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	if err := s.ExportToWriter(file); err != nil {
		return err
	}

	log.Info().Str("path", outputPath).Msg("database exported")
	return nil
}

// ExportToWriter exports the database to an io.Writer (useful for HTTP responses)
func (s *BackupService) ExportToWriter(w io.Writer) error {
	backup := &BackupData{
		Version:      "1.0",
		ExportedAt:   time.Now(),
		DatabaseType: "universal",
	}

	if err := s.exportUsers(backup); err != nil {
		return fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportFamilies(backup); err != nil {
		return fmt.Errorf("failed to export families: %w", err)
	}
	if err := s.exportAppointments(backup); err != nil {
		return fmt.Errorf("failed to export appointments: %w", err)
	}

	log.Info().
		Int("users", len(backup.Users)).
		Int("families", len(backup.Families)).
		Int("appointments", len(backup.Appointments)).
		Msg("export snapshot built")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string) error {
	log.Info().Str("path", inputPath).Msg("starting database import")

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file)
}

// ImportFromReader restores a database from a backup reader
func (s *BackupService) ImportFromReader(reader io.Reader) error {
	var backup BackupData
	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Info().Str("version", backup.Version).Time("exported_at", backup.ExportedAt).Msg("restoring backup")

	// Import in order of dependencies
	if err := s.importUsers(backup.Users); err != nil {
		return fmt.Errorf("failed to import users: %w", err)
	}
	if err := s.importFamilies(backup.Families); err != nil {
		return fmt.Errorf("failed to import families: %w", err)
	}
	if err := s.importAppointments(backup.Appointments); err != nil {
		return fmt.Errorf("failed to import appointments: %w", err)
	}

	log.Info().Msg("database import completed")
	return nil
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	query := "SELECT id, email, password_hash, name, role, families, appointments, created_at, updated_at FROM users ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u UserBackup
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.Families, &u.Appointments, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportFamilies(backup *BackupData) error {
	query := "SELECT id, name, join_code, members, admins, drivers, appointments, created_at, updated_at FROM families ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FamilyBackup
		if err := rows.Scan(&f.ID, &f.Name, &f.JoinCode, &f.Members, &f.Admins, &f.Drivers, &f.Appointments, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return err
		}
		backup.Families = append(backup.Families, f)
	}
	return rows.Err()
}

func (s *BackupService) exportAppointments(backup *BackupData) error {
	query := "SELECT id, user_id, driver_id, family_id, days, time_from, time_to, recurring, location_from, location_to, status, review_id, created_by, created_at, updated_at FROM appointments ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var a AppointmentBackup
		var reviewID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.UserID, &a.DriverID, &a.FamilyID, &a.Days, &a.TimeFrom, &a.TimeTo, &a.Recurring, &a.LocationFrom, &a.LocationTo, &a.Status, &reviewID, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return err
		}
		if reviewID.Valid {
			a.ReviewID = &reviewID.Int64
		}
		backup.Appointments = append(backup.Appointments, a)
	}
	return rows.Err()
}

func (s *BackupService) importUsers(users []UserBackup) error {
	log.Info().Int("count", len(users)).Msg("importing users")
	for _, u := range users {
		query := "INSERT INTO users (id, email, password_hash, name, role, families, appointments, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.Families, u.Appointments, u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importFamilies(families []FamilyBackup) error {
	log.Info().Int("count", len(families)).Msg("importing families")
	for _, f := range families {
		query := "INSERT INTO families (id, name, join_code, members, admins, drivers, appointments, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, f.ID, f.Name, f.JoinCode, f.Members, f.Admins, f.Drivers, f.Appointments, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import family %d: %w", f.ID, err)
		}
	}
	return nil
}

func (s *BackupService) importAppointments(appointments []AppointmentBackup) error {
	log.Info().Int("count", len(appointments)).Msg("importing appointments")
	for _, a := range appointments {
		var reviewID interface{}
		if a.ReviewID != nil {
			reviewID = *a.ReviewID
		}
		query := "INSERT INTO appointments (id, user_id, driver_id, family_id, days, time_from, time_to, recurring, location_from, location_to, status, review_id, created_by, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := s.db.Exec(query, a.ID, a.UserID, a.DriverID, a.FamilyID, a.Days, a.TimeFrom, a.TimeTo, a.Recurring, a.LocationFrom, a.LocationTo, a.Status, reviewID, a.CreatedBy, a.CreatedAt, a.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import appointment %d: %w", a.ID, err)
		}
	}
	return nil
}
