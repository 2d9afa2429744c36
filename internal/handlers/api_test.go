package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"famride/internal/database"
	"famride/internal/ledger"
	"famride/internal/models"
	"famride/internal/repository"
	"famride/internal/security"
	"famride/internal/service"
)

// newTestServer wires the full HTTP stack over a throwaway sqlite
// database, mirroring the route table of cmd/server.
func newTestServer(t *testing.T) *httptest.Server {
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

	authService := service.NewAuthService(users, tokens)
	appointmentService := service.NewAppointmentService(db, users, families, appts, bookLedger, nil, false)
	familyService := service.NewFamilyService(db, users, families, appts, bookLedger)

	limiter := security.NewRateLimiter(1000, time.Minute)
	middleware := NewMiddleware(authService, limiter)
	authHandler := NewAuthHandler(authService)
	appointmentHandler := NewAppointmentHandler(appointmentService)
	familyHandler := NewFamilyHandler(familyService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /register", middleware.RateLimit(authHandler.Register))
	mux.HandleFunc("POST /login", middleware.RateLimit(authHandler.Login))
	mux.HandleFunc("GET /appointments", appointmentHandler.ListAll)
	mux.HandleFunc("GET /appointments/{familyId}", appointmentHandler.ListByFamily)
	mux.HandleFunc("POST /appointments/{familyId}", middleware.RequireAuth(appointmentHandler.Create))
	mux.HandleFunc("PUT /appointments/{id}", middleware.RequireAuth(appointmentHandler.Update))
	mux.HandleFunc("DELETE /appointments/{id}", middleware.RequireAuth(appointmentHandler.Delete))
	mux.HandleFunc("POST /families", middleware.RequireAuth(familyHandler.Create))
	mux.HandleFunc("GET /families", middleware.RequireAuth(familyHandler.List))
	mux.HandleFunc("POST /families/join", middleware.RequireAuth(familyHandler.Join))
	mux.HandleFunc("GET /families/{id}", middleware.RequireAuth(familyHandler.Get))
	mux.HandleFunc("PUT /families/{id}", middleware.RequireAuth(familyHandler.Update))
	mux.HandleFunc("DELETE /families/{id}", middleware.RequireAuth(familyHandler.Delete))

	server := httptest.NewServer(LogRequests(mux))
	t.Cleanup(server.Close)
	return server
}

// doRequest sends a JSON request and decodes the JSON response into out
// when out is non-nil.
func doRequest(t *testing.T, server *httptest.Server, method, path, token string, body, out interface{}) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
	return resp.StatusCode
}

// registerAndLogin creates an account and returns its token and user.
func registerAndLogin(t *testing.T, server *httptest.Server, email, role string) (string, models.User) {
	t.Helper()

	status := doRequest(t, server, http.MethodPost, "/register", "", map[string]string{
		"email":    email,
		"password": "password123",
		"name":     "Test User",
		"role":     role,
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("register returned status %d", status)
	}

	var login struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	status = doRequest(t, server, http.MethodPost, "/login", "", map[string]string{
		"email":    email,
		"password": "password123",
	}, &login)
	if status != http.StatusOK {
		t.Fatalf("login returned status %d", status)
	}
	return login.Token, login.User
}

func TestRegisterLoginFlow(t *testing.T) {
	server := newTestServer(t)

	token, user := registerAndLogin(t, server, "alice@example.com", "user")
	if token == "" {
		t.Fatal("login returned empty token")
	}
	if user.Email != "alice@example.com" {
		t.Errorf("user email = %q, want alice@example.com", user.Email)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	server := newTestServer(t)

	var resp errorResponse
	status := doRequest(t, server, http.MethodPost, "/register", "", map[string]string{
		"email":    "weak@example.com",
		"password": "short",
		"name":     "Weak",
	}, &resp)
	if status != http.StatusBadRequest {
		t.Errorf("register status = %d, want 400", status)
	}
	if resp.Error == "" {
		t.Error("error body missing")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	server := newTestServer(t)
	registerAndLogin(t, server, "bob@example.com", "user")

	status := doRequest(t, server, http.MethodPost, "/login", "", map[string]string{
		"email":    "bob@example.com",
		"password": "wrongpassword",
	}, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("login status = %d, want 401", status)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	server := newTestServer(t)

	if status := doRequest(t, server, http.MethodDelete, "/appointments/1", "", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", status)
	}
	if status := doRequest(t, server, http.MethodDelete, "/appointments/1", "garbage", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("garbage token status = %d, want 401", status)
	}
}

func TestAppointmentLifecycleOverHTTP(t *testing.T) {
	server := newTestServer(t)

	riderToken, rider := registerAndLogin(t, server, "rider@example.com", "user")
	_, driver := registerAndLogin(t, server, "driver@example.com", "driver")

	var family models.Family
	status := doRequest(t, server, http.MethodPost, "/families", riderToken, map[string]interface{}{
		"name":    "Smith",
		"drivers": []int64{driver.ID},
	}, &family)
	if status != http.StatusCreated {
		t.Fatalf("create family status = %d", status)
	}

	// Book.
	var appt models.Appointment
	status = doRequest(t, server, http.MethodPost, fmt.Sprintf("/appointments/%d", family.ID), riderToken, map[string]interface{}{
		"driver_id": driver.ID,
		"days":      []string{"mon", "wed"},
		"time_from": "10:00",
		"time_to":   "11:00",
	}, &appt)
	if status != http.StatusCreated {
		t.Fatalf("create appointment status = %d", status)
	}
	if appt.UserID != rider.ID {
		t.Errorf("appointment rider = %d, want %d", appt.UserID, rider.ID)
	}

	// Conflict for the same driver.
	var conflict errorResponse
	status = doRequest(t, server, http.MethodPost, fmt.Sprintf("/appointments/%d", family.ID), riderToken, map[string]interface{}{
		"driver_id": driver.ID,
		"days":      []string{"wed", "fri"},
		"time_from": "10:30",
		"time_to":   "11:30",
	}, &conflict)
	if status != http.StatusConflict {
		t.Errorf("conflicting appointment status = %d, want 409", status)
	}

	// Patch.
	var updated models.Appointment
	status = doRequest(t, server, http.MethodPut, fmt.Sprintf("/appointments/%d", appt.ID), riderToken, map[string]interface{}{
		"status": "done",
	}, &updated)
	if status != http.StatusOK {
		t.Fatalf("update appointment status = %d", status)
	}
	if updated.Status != models.StatusDone {
		t.Errorf("status = %q, want done", updated.Status)
	}

	// List.
	var list []models.Appointment
	status = doRequest(t, server, http.MethodGet, fmt.Sprintf("/appointments/%d", family.ID), riderToken, nil, &list)
	if status != http.StatusOK {
		t.Fatalf("list appointments status = %d", status)
	}
	if len(list) != 1 {
		t.Errorf("list returned %d appointments, want 1", len(list))
	}

	// Delete.
	status = doRequest(t, server, http.MethodDelete, fmt.Sprintf("/appointments/%d", appt.ID), riderToken, nil, nil)
	if status != http.StatusOK {
		t.Fatalf("delete appointment status = %d", status)
	}
	status = doRequest(t, server, http.MethodDelete, fmt.Sprintf("/appointments/%d", appt.ID), riderToken, nil, nil)
	if status != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", status)
	}
}

func TestForbiddenForOutsider(t *testing.T) {
	server := newTestServer(t)

	ownerToken, _ := registerAndLogin(t, server, "owner@example.com", "user")
	_, driver := registerAndLogin(t, server, "driver2@example.com", "driver")
	outsiderToken, _ := registerAndLogin(t, server, "outsider@example.com", "user")

	var family models.Family
	if status := doRequest(t, server, http.MethodPost, "/families", ownerToken, map[string]interface{}{
		"name":    "Jones",
		"drivers": []int64{driver.ID},
	}, &family); status != http.StatusCreated {
		t.Fatalf("create family status = %d", status)
	}

	status := doRequest(t, server, http.MethodPost, fmt.Sprintf("/appointments/%d", family.ID), outsiderToken, map[string]interface{}{
		"driver_id": driver.ID,
		"days":      []string{"mon"},
		"time_from": "08:00",
		"time_to":   "09:00",
	}, nil)
	if status != http.StatusForbidden {
		t.Errorf("outsider create status = %d, want 403", status)
	}

	status = doRequest(t, server, http.MethodDelete, fmt.Sprintf("/families/%d", family.ID), outsiderToken, nil, nil)
	if status != http.StatusForbidden {
		t.Errorf("outsider family delete status = %d, want 403", status)
	}
}

func TestFamilyJoinOverHTTP(t *testing.T) {
	server := newTestServer(t)

	ownerToken, _ := registerAndLogin(t, server, "own@example.com", "user")
	joinerToken, joiner := registerAndLogin(t, server, "join@example.com", "driver")

	var family models.Family
	if status := doRequest(t, server, http.MethodPost, "/families", ownerToken, map[string]string{
		"name": "Miller",
	}, &family); status != http.StatusCreated {
		t.Fatalf("create family status = %d", status)
	}

	var joined models.Family
	status := doRequest(t, server, http.MethodPost, "/families/join", joinerToken, map[string]string{
		"join_code": family.JoinCode,
	}, &joined)
	if status != http.StatusOK {
		t.Fatalf("join status = %d", status)
	}
	if !joined.Members.Contains(joiner.ID) {
		t.Errorf("members = %v, missing joiner %d", joined.Members, joiner.ID)
	}
	if !joined.Drivers.Contains(joiner.ID) {
		t.Errorf("drivers = %v, missing driver joiner %d", joined.Drivers, joiner.ID)
	}

	status = doRequest(t, server, http.MethodPost, "/families/join", joinerToken, map[string]string{
		"join_code": "bogus",
	}, nil)
	if status != http.StatusNotFound {
		t.Errorf("join with bogus code status = %d, want 404", status)
	}
}

func TestMalformedBodyRejected(t *testing.T) {
	server := newTestServer(t)
	token, _ := registerAndLogin(t, server, "mal@example.com", "user")

	req, err := http.NewRequest(http.MethodPost, server.URL+"/families", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("Failed to build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", resp.StatusCode)
	}
}

func TestRateLimitOnLogin(t *testing.T) {
	// Dedicated server with a tiny per-IP budget.
	db, err := database.Initialize(filepath.Join(t.TempDir(), "rl.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	users := repository.NewUserRepository(db)
	tokens := security.NewTokenIssuer("test-secret", time.Hour)
	authService := service.NewAuthService(users, tokens)
	middleware := NewMiddleware(authService, security.NewRateLimiter(2, time.Minute))
	authHandler := NewAuthHandler(authService)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", middleware.RateLimit(authHandler.Login))
	limited := httptest.NewServer(mux)
	t.Cleanup(limited.Close)

	body := []byte(`{"email":"nobody@example.com","password":"password123"}`)
	var last int
	for i := 0; i < 3; i++ {
		req, err := http.NewRequest(http.MethodPost, limited.URL+"/login", bytes.NewReader(body))
		if err != nil {
			t.Fatalf("Failed to build request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Real-IP", "192.0.2.1")

		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third login status = %d, want 429", last)
	}
}
