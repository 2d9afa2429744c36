package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"famride/internal/authz"
	"famride/internal/models"
	"famride/internal/repository"
)

func TestCreateFamilyMakesCreatorSoleAdmin(t *testing.T) {
	env := newTestEnv(t)
	creator := env.registerUser(t, models.RoleUser)

	family, err := env.familySvc.Create(asPrincipal(creator), CreateFamilyRequest{Name: "Smith"})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if !family.Members.Contains(creator.ID) {
		t.Errorf("members = %v, expected to contain creator %d", family.Members, creator.ID)
	}
	if !reflect.DeepEqual(family.Admins, models.IDSet{creator.ID}) {
		t.Errorf("admins = %v, want sole admin %d", family.Admins, creator.ID)
	}
	if family.JoinCode == "" {
		t.Error("join code not generated")
	}

	// Back-reference on the creator.
	got, _ := env.users.GetUserByID(creator.ID)
	if !got.Families.Contains(family.ID) {
		t.Errorf("creator families = %v, expected to contain %d", got.Families, family.ID)
	}
}

func TestCreateFamilyRequiresName(t *testing.T) {
	env := newTestEnv(t)
	creator := env.registerUser(t, models.RoleUser)

	_, err := env.familySvc.Create(asPrincipal(creator), CreateFamilyRequest{})
	if !errors.Is(err, ErrFamilyNameRequired) {
		t.Errorf("Create() error = %v, want ErrFamilyNameRequired", err)
	}
}

func TestCreateFamilyRejectsUnknownMember(t *testing.T) {
	env := newTestEnv(t)
	creator := env.registerUser(t, models.RoleUser)

	_, err := env.familySvc.Create(asPrincipal(creator), CreateFamilyRequest{
		Name:    "Smith",
		Members: []int64{999},
	})
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("Create() error = %v, want repository.ErrNotFound", err)
	}

	// The transaction must roll back: no family row survives.
	families, err := env.familySvc.List()
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(families) != 0 {
		t.Errorf("got %d families after failed create, want 0", len(families))
	}
}

func TestUpdateFamilyRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, rider, _, family := env.setupFamily(t)

	_, err := env.familySvc.Update(asPrincipal(rider), family.ID, UpdateFamilyRequest{
		Members: []int64{rider.ID},
	})
	if !errors.Is(err, authz.ErrNotFamilyAdmin) {
		t.Errorf("Update() error = %v, want ErrNotFamilyAdmin", err)
	}
}

func TestUpdateFamilyRejectsEmptyMembers(t *testing.T) {
	env := newTestEnv(t)
	admin, _, _, family := env.setupFamily(t)

	_, err := env.familySvc.Update(asPrincipal(admin), family.ID, UpdateFamilyRequest{})
	if !errors.Is(err, ErrNoMembers) {
		t.Errorf("Update() error = %v, want ErrNoMembers", err)
	}
}

func TestUpdateFamilyReconcilesUserBackReferences(t *testing.T) {
	env := newTestEnv(t)
	admin, rider, driver, family := env.setupFamily(t)

	// Drop the rider, keep admin and driver.
	updated, err := env.familySvc.Update(asPrincipal(admin), family.ID, UpdateFamilyRequest{
		Members: []int64{admin.ID},
		Drivers: []int64{driver.ID},
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	if updated.Members.Contains(rider.ID) {
		t.Errorf("members = %v, rider %d should be removed", updated.Members, rider.ID)
	}

	gotRider, _ := env.users.GetUserByID(rider.ID)
	if gotRider.Families.Contains(family.ID) {
		t.Errorf("removed rider still references family %d", family.ID)
	}
	gotDriver, _ := env.users.GetUserByID(driver.ID)
	if !gotDriver.Families.Contains(family.ID) {
		t.Errorf("driver lost reference to family %d", family.ID)
	}
}

func TestUpdateFamilyAdminSuccession(t *testing.T) {
	env := newTestEnv(t)
	admin, rider, driver, family := env.setupFamily(t)

	// The sole admin removes themselves; the lowest-id remaining member
	// who is not a driver takes over.
	updated, err := env.familySvc.Update(asPrincipal(admin), family.ID, UpdateFamilyRequest{
		Members: []int64{rider.ID, driver.ID},
		Drivers: []int64{driver.ID},
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	if !reflect.DeepEqual(updated.Admins, models.IDSet{rider.ID}) {
		t.Errorf("admins = %v, want successor %d", updated.Admins, rider.ID)
	}
}

func TestUpdateFamilyNoEligibleSuccessor(t *testing.T) {
	env := newTestEnv(t)
	admin, _, driver, family := env.setupFamily(t)

	// Only a driver remains; the family ends up without admins.
	updated, err := env.familySvc.Update(asPrincipal(admin), family.ID, UpdateFamilyRequest{
		Members: []int64{driver.ID},
		Drivers: []int64{driver.ID},
	})
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	if len(updated.Admins) != 0 {
		t.Errorf("admins = %v, want empty set", updated.Admins)
	}
}

func TestDeleteFamilyCascadesAppointments(t *testing.T) {
	env := newTestEnv(t)
	admin, rider, driver, family := env.setupFamily(t)

	appt, err := env.appointments.Create(context.Background(), asPrincipal(rider), family.ID, CreateAppointmentRequest{
		DriverID: driver.ID,
		Days:     []string{"mon"},
		TimeFrom: "08:00",
		TimeTo:   "09:00",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if _, err := env.familySvc.Delete(asPrincipal(admin), family.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if got, _ := env.families.GetFamilyByID(family.ID); got != nil {
		t.Error("family row still exists after delete")
	}
	if got, _ := env.appts.GetAppointmentByID(appt.ID); got != nil {
		t.Error("appointment row still exists after family delete")
	}

	gotRider, _ := env.users.GetUserByID(rider.ID)
	if gotRider.Families.Contains(family.ID) || gotRider.Appointments.Contains(appt.ID) {
		t.Errorf("rider keeps stale references: families=%v appointments=%v",
			gotRider.Families, gotRider.Appointments)
	}
	gotDriver, _ := env.users.GetUserByID(driver.ID)
	if gotDriver.Families.Contains(family.ID) || gotDriver.Appointments.Contains(appt.ID) {
		t.Errorf("driver keeps stale references: families=%v appointments=%v",
			gotDriver.Families, gotDriver.Appointments)
	}
}

func TestJoinFamilyByCode(t *testing.T) {
	env := newTestEnv(t)
	_, _, _, family := env.setupFamily(t)
	joiner := env.registerUser(t, models.RoleDriver)

	joined, err := env.familySvc.Join(asPrincipal(joiner), family.JoinCode)
	if err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	if !joined.Members.Contains(joiner.ID) {
		t.Errorf("members = %v, expected to contain joiner %d", joined.Members, joiner.ID)
	}
	if !joined.Drivers.Contains(joiner.ID) {
		t.Errorf("drivers = %v, expected driver joiner %d", joined.Drivers, joiner.ID)
	}

	got, _ := env.users.GetUserByID(joiner.ID)
	if !got.Families.Contains(family.ID) {
		t.Errorf("joiner families = %v, expected to contain %d", got.Families, family.ID)
	}
}

func TestJoinFamilyIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	_, rider, _, family := env.setupFamily(t)

	joined, err := env.familySvc.Join(asPrincipal(rider), family.JoinCode)
	if err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	if got, want := len(joined.Members), len(family.Members); got != want {
		t.Errorf("members count = %d, want %d", got, want)
	}
}

func TestJoinFamilyUnknownCode(t *testing.T) {
	env := newTestEnv(t)
	user := env.registerUser(t, models.RoleUser)

	_, err := env.familySvc.Join(asPrincipal(user), "nope")
	if !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("Join() error = %v, want ErrFamilyNotFound", err)
	}
}
