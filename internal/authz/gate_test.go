package authz

import (
	"errors"
	"testing"

	"famride/internal/models"
)

func TestCanCreateAppointment(t *testing.T) {
	family := &models.Family{
		ID:      10,
		Members: models.IDSet{1, 2},
		Admins:  models.IDSet{1},
	}
	member := &models.User{ID: 2, Families: models.IDSet{10}}
	outsider := &models.User{ID: 3, Families: models.IDSet{99}}

	tests := []struct {
		name      string
		principal Principal
		target    *models.User
		wantErr   error
	}{
		{
			name:      "self booking by member",
			principal: Principal{ID: 2},
			target:    member,
		},
		{
			name:      "admin booking for member",
			principal: Principal{ID: 1},
			target:    member,
		},
		{
			name:      "non-admin booking for someone else",
			principal: Principal{ID: 2},
			target:    &models.User{ID: 4, Families: models.IDSet{10}},
			wantErr:   ErrNotFamilyAdmin,
		},
		{
			name:      "self booking by non-member",
			principal: Principal{ID: 3},
			target:    outsider,
			wantErr:   ErrNotFamilyMember,
		},
		{
			name:      "admin booking for non-member still rejected",
			principal: Principal{ID: 1},
			target:    outsider,
			wantErr:   ErrNotFamilyMember,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanCreateAppointment(tt.principal, tt.target, family)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CanCreateAppointment() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanMutateAppointment(t *testing.T) {
	family := &models.Family{ID: 10, Admins: models.IDSet{1}}
	appt := &models.Appointment{ID: 5, UserID: 2, FamilyID: 10}

	tests := []struct {
		name      string
		principal Principal
		family    *models.Family
		wantErr   error
	}{
		{
			name:      "appointment owner",
			principal: Principal{ID: 2},
			family:    family,
		},
		{
			name:      "family admin",
			principal: Principal{ID: 1},
			family:    family,
		},
		{
			name:      "unrelated user",
			principal: Principal{ID: 9},
			family:    family,
			wantErr:   ErrNotAppointmentOwner,
		},
		{
			name:      "owner without family loaded",
			principal: Principal{ID: 2},
			family:    nil,
		},
		{
			name:      "non-owner without family loaded",
			principal: Principal{ID: 1},
			family:    nil,
			wantErr:   ErrNotAppointmentOwner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CanMutateAppointment(tt.principal, appt, tt.family)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CanMutateAppointment() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCanMutateFamily(t *testing.T) {
	family := &models.Family{ID: 10, Members: models.IDSet{1, 2}, Admins: models.IDSet{1}}

	if err := CanMutateFamily(Principal{ID: 1}, family); err != nil {
		t.Errorf("CanMutateFamily() admin should pass, got %v", err)
	}
	if err := CanMutateFamily(Principal{ID: 2}, family); !errors.Is(err, ErrNotFamilyAdmin) {
		t.Errorf("CanMutateFamily() member error = %v, want ErrNotFamilyAdmin", err)
	}
}
