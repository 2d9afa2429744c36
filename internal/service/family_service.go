package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"famride/internal/authz"
	"famride/internal/database"
	"famride/internal/ledger"
	"famride/internal/models"
	"famride/internal/repository"
)

var (
	ErrFamilyNameRequired = errors.New("family name is required")
	ErrNoMembers          = errors.New("a family must keep at least one member")
)

// CreateFamilyRequest is the typed body for family creation.
type CreateFamilyRequest struct {
	Name    string  `json:"name"`
	Members []int64 `json:"members"`
	Drivers []int64 `json:"drivers"`
}

// UpdateFamilyRequest replaces the family's name and membership lists.
// Admins are not client-settable; succession is handled by the ledger.
type UpdateFamilyRequest struct {
	Name    string  `json:"name"`
	Members []int64 `json:"members"`
	Drivers []int64 `json:"drivers"`
}

// FamilyService handles family lifecycle and membership reconciliation
type FamilyService struct {
	db         *database.DB
	userRepo   *repository.UserRepository
	familyRepo *repository.FamilyRepository
	apptRepo   *repository.AppointmentRepository
	ledger     *ledger.Ledger
}

// NewFamilyService creates a new family service
func NewFamilyService(
	db *database.DB,
	userRepo *repository.UserRepository,
	familyRepo *repository.FamilyRepository,
	apptRepo *repository.AppointmentRepository,
	bookLedger *ledger.Ledger,
) *FamilyService {
	return &FamilyService{
		db:         db,
		userRepo:   userRepo,
		familyRepo: familyRepo,
		apptRepo:   apptRepo,
		ledger:     bookLedger,
	}
}

// Create creates a family. The creator always ends up a member and the
// sole initial admin; extra members and drivers from the request are
// linked through the ledger.
func (s *FamilyService) Create(principal authz.Principal, req CreateFamilyRequest) (*models.Family, error) {
	if req.Name == "" {
		return nil, ErrFamilyNameRequired
	}

	family := &models.Family{
		Name:     req.Name,
		JoinCode: uuid.New().String()[:8],
		Members:  models.IDSet{principal.ID},
		Admins:   models.IDSet{principal.ID},
		Drivers:  models.IDSet{},
	}
	for _, id := range req.Members {
		family.Members = family.Members.Add(id)
	}
	for _, id := range req.Drivers {
		family.Drivers = family.Drivers.Add(id)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := s.familyRepo.WithTx(tx).CreateFamily(family)
	if err != nil {
		return nil, err
	}
	family.ID = id

	if err := s.ledger.WithTx(tx).FamilyCreated(family); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.familyRepo.GetFamilyByID(id)
}

// Get retrieves a family by id.
func (s *FamilyService) Get(familyID int64) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByID(familyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// List retrieves all families.
func (s *FamilyService) List() ([]models.Family, error) {
	return s.familyRepo.ListFamilies()
}

// Update replaces the family's name and membership lists. Admin-only.
// An update may never leave the family without members.
func (s *FamilyService) Update(principal authz.Principal, familyID int64, req UpdateFamilyRequest) (*models.Family, error) {
	old, err := s.Get(familyID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanMutateFamily(principal, old); err != nil {
		return nil, err
	}

	if len(req.Members) == 0 {
		return nil, ErrNoMembers
	}

	updated := &models.Family{
		ID:       old.ID,
		Name:     old.Name,
		JoinCode: old.JoinCode,
		Members:  models.IDSet{},
		Admins:   old.Admins,
		Drivers:  models.IDSet{},
	}
	if req.Name != "" {
		updated.Name = req.Name
	}
	for _, id := range req.Members {
		updated.Members = updated.Members.Add(id)
	}
	for _, id := range req.Drivers {
		updated.Drivers = updated.Drivers.Add(id)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Ledger reconciles User.Families and decides admin succession.
	if err := s.ledger.WithTx(tx).FamilyUpdated(old, updated, principal.ID); err != nil {
		return nil, err
	}
	if err := s.familyRepo.WithTx(tx).UpdateFamily(updated); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.familyRepo.GetFamilyByID(familyID)
}

// Delete removes the family, its appointments, and every back-reference
// to either. Admin-only.
func (s *FamilyService) Delete(principal authz.Principal, familyID int64) (*models.Family, error) {
	family, err := s.Get(familyID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanMutateFamily(principal, family); err != nil {
		return nil, err
	}

	appts, err := s.apptRepo.ListByFamily(familyID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	txLedger := s.ledger.WithTx(tx)
	txAppts := s.apptRepo.WithTx(tx)
	for i := range appts {
		if err := txAppts.DeleteAppointment(appts[i].ID); err != nil {
			return nil, err
		}
		if err := txLedger.AppointmentDeleted(&appts[i]); err != nil {
			return nil, err
		}
	}

	if err := txLedger.FamilyDeleted(family); err != nil {
		return nil, err
	}
	if err := s.familyRepo.WithTx(tx).DeleteFamily(familyID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return family, nil
}

// Join adds the principal to a family by join code.
func (s *FamilyService) Join(principal authz.Principal, joinCode string) (*models.Family, error) {
	family, err := s.familyRepo.GetFamilyByJoinCode(joinCode)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	if family.IsMember(principal.ID) {
		return family, nil
	}

	updated := &models.Family{
		ID:       family.ID,
		Name:     family.Name,
		JoinCode: family.JoinCode,
		Members:  family.Members.Add(principal.ID),
		Admins:   family.Admins,
		Drivers:  family.Drivers,
	}
	if principal.Role == models.RoleDriver {
		updated.Drivers = family.Drivers.Add(principal.ID)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.ledger.WithTx(tx).FamilyUpdated(family, updated, principal.ID); err != nil {
		return nil, err
	}
	if err := s.familyRepo.WithTx(tx).UpdateFamily(updated); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return s.familyRepo.GetFamilyByID(family.ID)
}
