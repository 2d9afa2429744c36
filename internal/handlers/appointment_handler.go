package handlers

import (
	"net/http"
	"strconv"

	"famride/internal/service"
)

// AppointmentHandler serves the appointment CRUD endpoints.
type AppointmentHandler struct {
	appointments *service.AppointmentService
}

// NewAppointmentHandler creates a new appointment handler
func NewAppointmentHandler(appointments *service.AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointments}
}

// Create handles POST /appointments/{familyId}
func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	familyID, err := pathID(r, "familyId")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	var req service.CreateAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	appt, err := h.appointments.Create(r.Context(), principal, familyID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, appt)
}

// Update handles PUT /appointments/{id}
func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	appointmentID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid appointment id"})
		return
	}

	var patch service.AppointmentPatch
	if err := decodeJSON(r, &patch); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	appt, err := h.appointments.Update(r.Context(), principal, appointmentID, patch)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, appt)
}

// Delete handles DELETE /appointments/{id}
func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	appointmentID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid appointment id"})
		return
	}

	appt, err := h.appointments.Delete(r.Context(), principal, appointmentID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, appt)
}

// ListByFamily handles GET /appointments/{familyId}
func (h *AppointmentHandler) ListByFamily(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "familyId")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	appts, err := h.appointments.ListByFamily(familyID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, appts)
}

// ListAll handles GET /appointments
func (h *AppointmentHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	appts, err := h.appointments.ListAll()
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, appts)
}

// pathID parses a numeric path parameter.
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}
