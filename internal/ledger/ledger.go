// Package ledger keeps the denormalized back-reference arrays on users and
// families consistent with the authoritative appointment and family rows.
// Every mutation entry point expects to run inside a caller-owned
// transaction (bind with WithTx) so the multi-row fixups commit or roll
// back as a unit. All operations are idempotent with respect to set
// membership.
package ledger

import (
	"fmt"

	"famride/internal/database"
	"famride/internal/models"
	"famride/internal/repository"
)

// Ledger applies back-reference fixups for appointment and family writes.
type Ledger struct {
	users        *repository.UserRepository
	families     *repository.FamilyRepository
	appointments *repository.AppointmentRepository
}

// New creates a ledger over the given repositories.
func New(users *repository.UserRepository, families *repository.FamilyRepository, appointments *repository.AppointmentRepository) *Ledger {
	return &Ledger{users: users, families: families, appointments: appointments}
}

// WithTx returns a copy of the ledger whose repositories run inside tx.
func (l *Ledger) WithTx(tx *database.Tx) *Ledger {
	return &Ledger{
		users:        l.users.WithTx(tx),
		families:     l.families.WithTx(tx),
		appointments: l.appointments.WithTx(tx),
	}
}

// AppointmentCreated appends the appointment id to the rider's, driver's
// and family's back-reference arrays.
func (l *Ledger) AppointmentCreated(appt *models.Appointment) error {
	if err := l.users.AddAppointment(appt.UserID, appt.ID); err != nil {
		return fmt.Errorf("failed to link appointment to rider: %w", err)
	}
	if err := l.users.AddAppointment(appt.DriverID, appt.ID); err != nil {
		return fmt.Errorf("failed to link appointment to driver: %w", err)
	}
	if err := l.families.AddAppointment(appt.FamilyID, appt.ID); err != nil {
		return fmt.Errorf("failed to link appointment to family: %w", err)
	}
	return nil
}

// AppointmentDeleted removes the appointment id from the rider's, driver's
// and family's back-reference arrays.
func (l *Ledger) AppointmentDeleted(appt *models.Appointment) error {
	if err := l.users.RemoveAppointment(appt.UserID, appt.ID); err != nil {
		return fmt.Errorf("failed to unlink appointment from rider: %w", err)
	}
	if err := l.users.RemoveAppointment(appt.DriverID, appt.ID); err != nil {
		return fmt.Errorf("failed to unlink appointment from driver: %w", err)
	}
	if err := l.families.RemoveAppointment(appt.FamilyID, appt.ID); err != nil {
		return fmt.Errorf("failed to unlink appointment from family: %w", err)
	}
	return nil
}

// FamilyCreated adds the family id to the families set of every initial
// member and driver.
func (l *Ledger) FamilyCreated(family *models.Family) error {
	for _, userID := range union(family.Members, family.Drivers) {
		if err := l.users.AddFamily(userID, family.ID); err != nil {
			return fmt.Errorf("failed to link family to user %d: %w", userID, err)
		}
	}
	return nil
}

// FamilyDeleted removes the family id from the families set of every
// former member and driver.
func (l *Ledger) FamilyDeleted(family *models.Family) error {
	for _, userID := range union(family.Members, family.Drivers) {
		if err := l.users.RemoveFamily(userID, family.ID); err != nil {
			return fmt.Errorf("failed to unlink family from user %d: %w", userID, err)
		}
	}
	return nil
}

// FamilyUpdated reconciles User.Families after the members and drivers
// lists were replaced. Membership of the family id in a user's set is
// driven by presence in either list, so the member rule and the driver
// rule apply independently without ordering effects.
//
// It also handles admin succession on the updated family in memory: when
// the update removes the acting principal and the principal was the sole
// admin, the lowest-id new member who is not also a driver is promoted.
// If no member qualifies the family is left with zero admins. The caller
// persists the updated family row afterwards.
func (l *Ledger) FamilyUpdated(old, updated *models.Family, principalID int64) error {
	oldUsers := union(old.Members, old.Drivers)
	newUsers := union(updated.Members, updated.Drivers)

	for _, userID := range newUsers {
		if err := l.users.AddFamily(userID, updated.ID); err != nil {
			return fmt.Errorf("failed to link family to user %d: %w", userID, err)
		}
	}
	for _, userID := range oldUsers {
		if newUsers.Contains(userID) {
			continue
		}
		if err := l.users.RemoveFamily(userID, updated.ID); err != nil {
			return fmt.Errorf("failed to unlink family from user %d: %w", userID, err)
		}
	}

	updated.Admins = succeedAdmins(old, updated, principalID)
	return nil
}

// succeedAdmins decides the admin list of the updated family.
func succeedAdmins(old, updated *models.Family, principalID int64) models.IDSet {
	soleAdmin := len(old.Admins) == 1 && old.Admins[0] == principalID
	if !soleAdmin || updated.Members.Contains(principalID) {
		return old.Admins
	}

	// Deterministic succession: lowest-id remaining member not also a driver.
	var successor int64
	for _, userID := range updated.Members {
		if updated.Drivers.Contains(userID) {
			continue
		}
		if successor == 0 || userID < successor {
			successor = userID
		}
	}
	if successor == 0 {
		return models.IDSet{}
	}
	return models.IDSet{successor}
}

// union returns the members of a followed by the members of b that are not
// already present, preserving order.
func union(a, b models.IDSet) models.IDSet {
	out := make(models.IDSet, 0, len(a)+len(b))
	for _, id := range a {
		out = out.Add(id)
	}
	for _, id := range b {
		out = out.Add(id)
	}
	return out
}
