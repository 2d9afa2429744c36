package service

import (
	"errors"
	"testing"

	"famride/internal/models"
	"famride/internal/validation"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.auth.Register("alice@example.com", "password123", "Alice", models.RoleUser)
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if user.ID == 0 {
		t.Error("Register() returned user without id")
	}
	if user.Role != models.RoleUser {
		t.Errorf("Register() role = %q, want %q", user.Role, models.RoleUser)
	}

	token, loggedIn, err := env.auth.Login("alice@example.com", "password123")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if token == "" {
		t.Error("Login() returned empty token")
	}
	if loggedIn.ID != user.ID {
		t.Errorf("Login() user id = %d, want %d", loggedIn.ID, user.ID)
	}

	resolved, err := env.auth.ResolveToken(token)
	if err != nil {
		t.Fatalf("ResolveToken() error: %v", err)
	}
	if resolved.ID != user.ID {
		t.Errorf("ResolveToken() user id = %d, want %d", resolved.ID, user.ID)
	}
}

func TestRegisterDefaultsRole(t *testing.T) {
	env := newTestEnv(t)

	user, err := env.auth.Register("bob@example.com", "password123", "Bob", "")
	if err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if user.Role != models.RoleUser {
		t.Errorf("Register() role = %q, want %q", user.Role, models.RoleUser)
	}
}

func TestRegisterRejectsInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		email    string
		password string
		userName string
		role     string
		wantErr  error
	}{
		{"bad email", "not-an-email", "password123", "Alice", "", validation.ErrInvalid},
		{"short password", "a@example.com", "short", "Alice", "", validation.ErrInvalid},
		{"short name", "a@example.com", "password123", "A", "", validation.ErrInvalid},
		{"unknown role", "a@example.com", "password123", "Alice", "pilot", ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.auth.Register(tt.email, tt.password, tt.userName, tt.role)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.auth.Register("dup@example.com", "password123", "First", ""); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	_, err := env.auth.Register("dup@example.com", "password123", "Second", "")
	if !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Register() error = %v, want ErrEmailTaken", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.auth.Register("carol@example.com", "password123", "Carol", ""); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", "carol@example.com", "wrongpassword"},
		{"unknown email", "nobody@example.com", "password123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := env.auth.Login(tt.email, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestResolveTokenRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.auth.ResolveToken("not-a-token"); err == nil {
		t.Error("ResolveToken() accepted a garbage token")
	}
}
