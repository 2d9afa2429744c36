package service

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"famride/internal/authz"
	"famride/internal/database"
	"famride/internal/ledger"
	"famride/internal/models"
	"famride/internal/repository"
	"famride/internal/security"
)

// testEnv wires the full service stack over a throwaway sqlite database.
type testEnv struct {
	db           *database.DB
	users        *repository.UserRepository
	families     *repository.FamilyRepository
	appts        *repository.AppointmentRepository
	auth         *AuthService
	familySvc    *FamilyService
	appointments *AppointmentService
	userSeq      int
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithRevalidate(t, false)
}

func newTestEnvWithRevalidate(t *testing.T, revalidateOnUpdate bool) *testEnv {
	t.Helper()

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	users := repository.NewUserRepository(db)
	families := repository.NewFamilyRepository(db)
	appts := repository.NewAppointmentRepository(db)
	bookLedger := ledger.New(users, families, appts)
	tokens := security.NewTokenIssuer("test-secret", time.Hour)

	return &testEnv{
		db:           db,
		users:        users,
		families:     families,
		appts:        appts,
		auth:         NewAuthService(users, tokens),
		familySvc:    NewFamilyService(db, users, families, appts, bookLedger),
		appointments: NewAppointmentService(db, users, families, appts, bookLedger, nil, revalidateOnUpdate),
		userSeq:      0,
	}
}

func (e *testEnv) registerUser(t *testing.T, role string) *models.User {
	t.Helper()
	e.userSeq++
	user, err := e.auth.Register(
		fmt.Sprintf("user%d@example.com", e.userSeq),
		"password123",
		fmt.Sprintf("User %d", e.userSeq),
		role)
	if err != nil {
		t.Fatalf("Failed to register user: %v", err)
	}
	return user
}

func asPrincipal(user *models.User) authz.Principal {
	return authz.Principal{ID: user.ID, Role: user.Role}
}

// setupFamily registers an admin, a rider and a driver and creates a
// family containing all three.
func (e *testEnv) setupFamily(t *testing.T) (admin, rider, driver *models.User, family *models.Family) {
	t.Helper()

	admin = e.registerUser(t, models.RoleUser)
	rider = e.registerUser(t, models.RoleUser)
	driver = e.registerUser(t, models.RoleDriver)

	family, err := e.familySvc.Create(asPrincipal(admin), CreateFamilyRequest{
		Name:    "Smith",
		Members: []int64{rider.ID},
		Drivers: []int64{driver.ID},
	})
	if err != nil {
		t.Fatalf("Failed to create family: %v", err)
	}
	return admin, rider, driver, family
}
