// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/campusbus/extrabus/complaints"
	"github.com/campusbus/extrabus/middleware"
	"github.com/campusbus/extrabus/models"
)

type ComplaintHandler struct {
	complaints *complaints.Store
}

func NewComplaintHandler(s *Services) *ComplaintHandler {
	return &ComplaintHandler{complaints: s.Complaints}
}

// staff may see and answer every complaint
func isStaff(role string) bool {
	return role == models.RoleCoordinator || role == models.RoleAdmin
}

// Create handles POST /complaints
func (h *ComplaintHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.CreateComplaintRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	c, err := h.complaints.File(r.Context(), userID, req)
	if err != nil {
		writeError(w, err, "file complaint")
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, c)
}

// List handles GET /complaints
func (h *ComplaintHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := currentUser(w, r)
	if !ok {
		return
	}
	if isStaff(role) {
		userID = ""
	}

	list, err := h.complaints.List(r.Context(), userID)
	if err != nil {
		writeError(w, err, "list complaints")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// Get handles GET /complaints/{id}. Non-staff users only see their own.
func (h *ComplaintHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, role, ok := currentUser(w, r)
	if !ok {
		return
	}

	c, err := h.complaints.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "get complaint")
		return
	}
	if !isStaff(role) && c.UserID != userID {
		middleware.ErrorResponse(w, http.StatusNotFound, complaints.ErrNotFound.Error())
		return
	}
	middleware.JSONResponse(w, http.StatusOK, c)
}

// Respond handles POST /complaints/{id}/responses
func (h *ComplaintHandler) Respond(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.RespondComplaintRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	resp, err := h.complaints.Respond(r.Context(), r.PathValue("id"), userID, req.Message)
	if err != nil {
		writeError(w, err, "respond to complaint")
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// Resolve handles POST /complaints/{id}/resolve
func (h *ComplaintHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	if err := h.complaints.Resolve(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err, "resolve complaint")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
