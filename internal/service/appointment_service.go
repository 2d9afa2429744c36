package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"famride/internal/authz"
	"famride/internal/database"
	"famride/internal/ledger"
	"famride/internal/models"
	"famride/internal/repository"
	"famride/internal/schedule"
	"famride/internal/security"
	"famride/internal/validation"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrFamilyNotFound      = errors.New("family not found")
	ErrDriverNotFound      = errors.New("driver not found")
	ErrInvalidStatus       = errors.New("status must be 'upcoming', 'ongoing' or 'done'")
)

// CreateAppointmentRequest is the typed body for appointment creation.
// UserID is the rider and defaults to the acting principal when zero.
type CreateAppointmentRequest struct {
	UserID       int64    `json:"user_id"`
	DriverID     int64    `json:"driver_id"`
	Days         []string `json:"days"`
	TimeFrom     string   `json:"time_from"`
	TimeTo       string   `json:"time_to"`
	Recurring    bool     `json:"recurring"`
	LocationFrom string   `json:"location_from"`
	LocationTo   string   `json:"location_to"`
}

// AppointmentPatch carries the optional fields of an update; nil means
// leave unchanged.
type AppointmentPatch struct {
	DriverID     *int64   `json:"driver_id"`
	Days         []string `json:"days"`
	TimeFrom     *string  `json:"time_from"`
	TimeTo       *string  `json:"time_to"`
	Recurring    *bool    `json:"recurring"`
	LocationFrom *string  `json:"location_from"`
	LocationTo   *string  `json:"location_to"`
	Status       *string  `json:"status"`
	ReviewID     *int64   `json:"review_id"`
}

// AppointmentService orchestrates the appointment lifecycle: authorization,
// conflict checking and ledger bookkeeping in the right order. It is the
// only entry point the HTTP layer talks to for appointments.
type AppointmentService struct {
	db          *database.DB
	userRepo    *repository.UserRepository
	familyRepo  *repository.FamilyRepository
	apptRepo    *repository.AppointmentRepository
	ledger      *ledger.Ledger
	checker     *schedule.Checker
	driverLocks *security.DriverLocks
	email       *EmailService

	// revalidateOnUpdate re-runs the conflict check when a patch touches
	// the driver, days or time window. Historically updates skipped the
	// check entirely, so this is opt-in.
	revalidateOnUpdate bool
}

// NewAppointmentService creates a new appointment service
func NewAppointmentService(
	db *database.DB,
	userRepo *repository.UserRepository,
	familyRepo *repository.FamilyRepository,
	apptRepo *repository.AppointmentRepository,
	bookLedger *ledger.Ledger,
	email *EmailService,
	revalidateOnUpdate bool,
) *AppointmentService {
	return &AppointmentService{
		db:          db,
		userRepo:    userRepo,
		familyRepo:  familyRepo,
		apptRepo:    apptRepo,
		ledger:      bookLedger,
		checker: schedule.NewChecker(func(ctx context.Context, driverID int64, days models.DaySet) ([]models.Appointment, error) {
			return apptRepo.FindByDriverAndDays(driverID, days)
		}),
		driverLocks:        security.NewDriverLocks(),
		email:              email,
		revalidateOnUpdate: revalidateOnUpdate,
	}
}

// Create books an appointment in the family after authorization and
// conflict checking pass. The driver's lock is held across the conflict
// check and the write so concurrent requests cannot both pass the check.
func (s *AppointmentService) Create(ctx context.Context, principal authz.Principal, familyID int64, req CreateAppointmentRequest) (*models.Appointment, error) {
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	riderID := req.UserID
	if riderID == 0 {
		riderID = principal.ID
	}
	rider, err := s.userRepo.GetUserByID(riderID)
	if err != nil {
		return nil, err
	}
	if rider == nil {
		return nil, ErrUserNotFound
	}

	if err := authz.CanCreateAppointment(principal, rider, family); err != nil {
		return nil, err
	}

	driver, err := s.userRepo.GetUserByID(req.DriverID)
	if err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, ErrDriverNotFound
	}

	days, err := validation.ValidateDays(req.Days)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateTimeWindow(req.TimeFrom, req.TimeTo); err != nil {
		return nil, err
	}

	s.driverLocks.Lock(driver.ID)
	defer s.driverLocks.Unlock(driver.ID)

	candidate := schedule.Candidate{
		DriverID: driver.ID,
		Days:     days,
		TimeFrom: req.TimeFrom,
		TimeTo:   req.TimeTo,
	}
	if err := s.checker.Check(ctx, candidate, 0); err != nil {
		return nil, err
	}

	appt := &models.Appointment{
		UserID:       rider.ID,
		DriverID:     driver.ID,
		FamilyID:     family.ID,
		Days:         days,
		TimeFrom:     req.TimeFrom,
		TimeTo:       req.TimeTo,
		Recurring:    req.Recurring,
		LocationFrom: req.LocationFrom,
		LocationTo:   req.LocationTo,
		Status:       models.StatusUpcoming,
		CreatedBy:    principal.ID,
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.apptRepo.WithTx(tx).CreateAppointment(appt)
	if err != nil {
		return nil, err
	}
	appt.ID = id

	if err := s.ledger.WithTx(tx).AppointmentCreated(appt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.notifyBooking(ctx, rider, appt, bookingCreated)

	created, err := s.apptRepo.GetAppointmentByID(id)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update patches an appointment after the mutate authorization check.
func (s *AppointmentService) Update(ctx context.Context, principal authz.Principal, appointmentID int64, patch AppointmentPatch) (*models.Appointment, error) {
	appt, _, err := s.loadForMutation(principal, appointmentID)
	if err != nil {
		return nil, err
	}

	oldDriverID := appt.DriverID
	scheduleChanged, err := applyPatch(appt, patch)
	if err != nil {
		return nil, err
	}

	if s.revalidateOnUpdate && scheduleChanged {
		s.driverLocks.Lock(appt.DriverID)
		defer s.driverLocks.Unlock(appt.DriverID)

		candidate := schedule.Candidate{
			DriverID: appt.DriverID,
			Days:     appt.Days,
			TimeFrom: appt.TimeFrom,
			TimeTo:   appt.TimeTo,
		}
		if err := s.checker.Check(ctx, candidate, appt.ID); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.apptRepo.WithTx(tx).UpdateAppointment(appt); err != nil {
		return nil, err
	}

	// A driver change moves the appointment between the drivers'
	// back-reference arrays.
	if appt.DriverID != oldDriverID {
		users := s.userRepo.WithTx(tx)
		if err := users.RemoveAppointment(oldDriverID, appt.ID); err != nil {
			return nil, err
		}
		if err := users.AddAppointment(appt.DriverID, appt.ID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.apptRepo.GetAppointmentByID(appt.ID)
}

// Delete removes an appointment and its back-references.
func (s *AppointmentService) Delete(ctx context.Context, principal authz.Principal, appointmentID int64) (*models.Appointment, error) {
	appt, _, err := s.loadForMutation(principal, appointmentID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.apptRepo.WithTx(tx).DeleteAppointment(appt.ID); err != nil {
		return nil, err
	}
	if err := s.ledger.WithTx(tx).AppointmentDeleted(appt); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if rider, riderErr := s.userRepo.GetUserByID(appt.UserID); riderErr == nil && rider != nil {
		s.notifyBooking(ctx, rider, appt, bookingCancelled)
	}

	return appt, nil
}

// ListByFamily returns the family's appointments.
func (s *AppointmentService) ListByFamily(familyID int64) ([]models.Appointment, error) {
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return s.apptRepo.ListByFamily(familyID)
}

// ListAll returns every appointment.
func (s *AppointmentService) ListAll() ([]models.Appointment, error) {
	return s.apptRepo.ListAll()
}

// loadForMutation loads the appointment and its family and runs the
// mutate authorization check.
func (s *AppointmentService) loadForMutation(principal authz.Principal, appointmentID int64) (*models.Appointment, *models.Family, error) {
	appt, err := s.apptRepo.GetAppointmentByID(appointmentID)
	if err != nil {
		return nil, nil, err
	}
	if appt == nil {
		return nil, nil, ErrAppointmentNotFound
	}

	family, err := s.familyRepo.GetFamilyByID(appt.FamilyID)
	if err != nil {
		return nil, nil, err
	}

	if err := authz.CanMutateAppointment(principal, appt, family); err != nil {
		return nil, nil, err
	}
	return appt, family, nil
}

// applyPatch copies patch fields onto the appointment and reports whether
// the driver, days or time window changed.
func applyPatch(appt *models.Appointment, patch AppointmentPatch) (bool, error) {
	scheduleChanged := false

	if patch.DriverID != nil && *patch.DriverID != appt.DriverID {
		appt.DriverID = *patch.DriverID
		scheduleChanged = true
	}
	if patch.Days != nil {
		days, err := validation.ValidateDays(patch.Days)
		if err != nil {
			return false, err
		}
		appt.Days = days
		scheduleChanged = true
	}
	if patch.TimeFrom != nil {
		appt.TimeFrom = *patch.TimeFrom
		scheduleChanged = true
	}
	if patch.TimeTo != nil {
		appt.TimeTo = *patch.TimeTo
		scheduleChanged = true
	}
	if patch.TimeFrom != nil || patch.TimeTo != nil {
		if err := validation.ValidateTimeWindow(appt.TimeFrom, appt.TimeTo); err != nil {
			return false, err
		}
	}
	if patch.Recurring != nil {
		appt.Recurring = *patch.Recurring
	}
	if patch.LocationFrom != nil {
		appt.LocationFrom = *patch.LocationFrom
	}
	if patch.LocationTo != nil {
		appt.LocationTo = *patch.LocationTo
	}
	if patch.Status != nil {
		switch *patch.Status {
		case models.StatusUpcoming, models.StatusOngoing, models.StatusDone:
			appt.Status = *patch.Status
		default:
			return false, ErrInvalidStatus
		}
	}
	if patch.ReviewID != nil {
		appt.ReviewID = patch.ReviewID
	}
	return scheduleChanged, nil
}

type bookingEvent string

const (
	bookingCreated   bookingEvent = "created"
	bookingCancelled bookingEvent = "cancelled"
)

// notifyBooking sends a best-effort booking email; failures are logged
// and never fail the request.
func (s *AppointmentService) notifyBooking(ctx context.Context, rider *models.User, appt *models.Appointment, event bookingEvent) {
	if s.email == nil || !s.email.IsEnabled() {
		return
	}

	var err error
	switch event {
	case bookingCreated:
		err = s.email.SendBookingConfirmation(ctx, rider.Email, rider.Name, appt)
	case bookingCancelled:
		err = s.email.SendBookingCancellation(ctx, rider.Email, rider.Name, appt)
	}
	if err != nil {
		log.Warn().Err(err).Int64("appointment", appt.ID).Msg("failed to send booking email")
	}
}
