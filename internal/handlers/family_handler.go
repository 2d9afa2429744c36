package handlers

import (
	"net/http"

	"famride/internal/service"
)

// FamilyHandler serves the family CRUD and join endpoints.
type FamilyHandler struct {
	families *service.FamilyService
}

// NewFamilyHandler creates a new family handler
func NewFamilyHandler(families *service.FamilyService) *FamilyHandler {
	return &FamilyHandler{families: families}
}

type joinRequest struct {
	JoinCode string `json:"join_code"`
}

// Create handles POST /families
func (h *FamilyHandler) Create(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	var req service.CreateFamilyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	family, err := h.families.Create(principal, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, family)
}

// Get handles GET /families/{id}
func (h *FamilyHandler) Get(w http.ResponseWriter, r *http.Request) {
	familyID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	family, err := h.families.Get(familyID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, family)
}

// List handles GET /families
func (h *FamilyHandler) List(w http.ResponseWriter, r *http.Request) {
	families, err := h.families.List()
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, families)
}

// Update handles PUT /families/{id}
func (h *FamilyHandler) Update(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	familyID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	var req service.UpdateFamilyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	family, err := h.families.Update(principal, familyID, req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, family)
}

// Delete handles DELETE /families/{id}
func (h *FamilyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	familyID, err := pathID(r, "id")
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid family id"})
		return
	}

	family, err := h.families.Delete(principal, familyID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, family)
}

// Join handles POST /families/join
func (h *FamilyHandler) Join(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		respondJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return
	}

	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	family, err := h.families.Join(principal, req.JoinCode)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, family)
}
