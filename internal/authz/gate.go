// Package authz decides whether an authenticated principal may perform a
// mutation. Each denial carries its own sentinel error so callers can
// surface the concrete reason instead of a generic 403.
package authz

import (
	"errors"

	"famride/internal/models"
)

var (
	// ErrNotFamilyMember rejects booking for a rider outside the family.
	ErrNotFamilyMember = errors.New("user is not a member of this family")
	// ErrNotFamilyAdmin rejects family mutations by non-admins.
	ErrNotFamilyAdmin = errors.New("user is not an admin of this family")
	// ErrNotAppointmentOwner rejects appointment mutations by users who
	// neither own the appointment nor administer its family.
	ErrNotAppointmentOwner = errors.New("user is neither the appointment owner nor a family admin")
)

// Principal is the already-authenticated identity performing an action.
// Token verification happens at the HTTP layer; the core only sees this.
type Principal struct {
	ID   int64
	Role string
}

// CanCreateAppointment checks whether the principal may create an
// appointment for the target rider in the given family. The principal must
// be the rider or a family admin, and independently the rider must already
// belong to the family.
func CanCreateAppointment(principal Principal, targetUser *models.User, family *models.Family) error {
	if principal.ID != targetUser.ID && !family.IsAdmin(principal.ID) {
		return ErrNotFamilyAdmin
	}
	if !targetUser.Families.Contains(family.ID) {
		return ErrNotFamilyMember
	}
	return nil
}

// CanMutateAppointment checks whether the principal may update or delete
// the appointment: either the rider it belongs to, or an admin of its
// owning family.
func CanMutateAppointment(principal Principal, appt *models.Appointment, family *models.Family) error {
	if principal.ID == appt.UserID {
		return nil
	}
	if family != nil && family.IsAdmin(principal.ID) {
		return nil
	}
	return ErrNotAppointmentOwner
}

// CanMutateFamily checks whether the principal may update or delete the
// family: admins only.
func CanMutateFamily(principal Principal, family *models.Family) error {
	if !family.IsAdmin(principal.ID) {
		return ErrNotFamilyAdmin
	}
	return nil
}
