// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/campusbus/extrabus/auth"
	"github.com/campusbus/extrabus/cliparse"
	"github.com/campusbus/extrabus/middleware"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/profiles"
)

type ProfileHandler struct {
	profiles *profiles.Store
	cfg      cliparse.Config
}

func NewProfileHandler(s *Services, cfg cliparse.Config) *ProfileHandler {
	return &ProfileHandler{profiles: s.Profiles, cfg: cfg}
}

// Register handles POST /profiles. Self-registration always creates a
// student; the role field is ignored.
func (h *ProfileHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterProfileRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	h.create(w, r, req, models.RoleStudent)
}

// CreateProfile handles POST /admin/profiles
func (h *ProfileHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterProfileRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Role == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "role is required")
		return
	}
	h.create(w, r, req, req.Role)
}

func (h *ProfileHandler) create(w http.ResponseWriter, r *http.Request, req models.RegisterProfileRequest, role string) {
	if req.FullName == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "full_name is required")
		return
	}
	if req.Email == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "email is required")
		return
	}

	p, err := h.profiles.Create(r.Context(), models.Profile{
		FullName: req.FullName,
		Email:    req.Email,
		Role:     role,
		Region:   req.Region,
	})
	if err != nil {
		writeError(w, err, "create profile")
		return
	}

	slog.Info("profile created", "user_id", p.ID, "role", p.Role, "region", p.Region)

	middleware.JSONResponse(w, http.StatusCreated, models.RegisterProfileResponse{
		UserID:  p.ID,
		UserKey: auth.GenerateUserKey(p.ID, h.cfg.UserKeySalt),
		Role:    p.Role,
	})
}

// List handles GET /profiles?role=
func (h *ProfileHandler) List(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role != "" && !profiles.ValidRole(role) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown role")
		return
	}

	list, err := h.profiles.List(r.Context(), role)
	if err != nil {
		writeError(w, err, "list profiles")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// Me handles GET /me
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, p)
}
