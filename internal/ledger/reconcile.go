package ledger

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"famride/internal/models"
)

// ReconcileReport summarizes what a reconciliation pass repaired.
type ReconcileReport struct {
	UsersRepaired    int
	FamiliesRepaired int
}

// Reconcile recomputes every back-reference array from the authoritative
// appointment and family rows and rewrites the ones that drifted. It is
// safe to run repeatedly and while the server is stopped; it exists to
// repair the partial states a crash between ledger writes could leave
// behind before transactions guarded them, or after a manual data edit.
func (l *Ledger) Reconcile() (*ReconcileReport, error) {
	users, err := l.users.ListUsers()
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	families, err := l.families.ListFamilies()
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	appts, err := l.appointments.ListAll()
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}

	report := &ReconcileReport{}

	for _, user := range users {
		wantFamilies := models.IDSet{}
		for _, family := range families {
			if family.Members.Contains(user.ID) || family.Drivers.Contains(user.ID) {
				wantFamilies = wantFamilies.Add(family.ID)
			}
		}
		wantAppts := models.IDSet{}
		for _, appt := range appts {
			if appt.UserID == user.ID || appt.DriverID == user.ID {
				wantAppts = wantAppts.Add(appt.ID)
			}
		}

		if sameSet(user.Families, wantFamilies) && sameSet(user.Appointments, wantAppts) {
			continue
		}
		if err := l.users.SetBackReferences(user.ID, wantFamilies, wantAppts); err != nil {
			return nil, err
		}
		log.Warn().Int64("user", user.ID).Msg("repaired user back-references")
		report.UsersRepaired++
	}

	for _, family := range families {
		wantAppts := models.IDSet{}
		for _, appt := range appts {
			if appt.FamilyID == family.ID {
				wantAppts = wantAppts.Add(appt.ID)
			}
		}
		if sameSet(family.Appointments, wantAppts) {
			continue
		}
		if err := l.families.SetAppointments(family.ID, wantAppts); err != nil {
			return nil, err
		}
		log.Warn().Int64("family", family.ID).Msg("repaired family back-references")
		report.FamiliesRepaired++
	}

	return report, nil
}

// sameSet compares two id sets ignoring order.
func sameSet(a, b models.IDSet) bool {
	if len(a) != len(b) {
		return false
	}
	for _, id := range a {
		if !b.Contains(id) {
			return false
		}
	}
	return true
}
