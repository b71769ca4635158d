// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/campusbus/extrabus/alerts"
	"github.com/campusbus/extrabus/middleware"
	"github.com/campusbus/extrabus/models"
)

type AlertHandler struct {
	alerts *alerts.Store
}

func NewAlertHandler(s *Services) *AlertHandler {
	return &AlertHandler{alerts: s.Alerts}
}

// Create handles POST /alerts
func (h *AlertHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req models.CreateAlertRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	alert, err := h.alerts.Create(r.Context(), userID, req)
	if err != nil {
		writeError(w, err, "create alert")
		return
	}
	slog.Info("alert published", "alert_id", alert.ID, "target_role", alert.TargetRole, "severity", alert.Severity)
	middleware.JSONResponse(w, http.StatusCreated, alert)
}

// List handles GET /alerts. Users see alerts for their role and for all
// roles; admins see everything.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	_, role, ok := currentUser(w, r)
	if !ok {
		return
	}
	if role == models.RoleAdmin {
		role = ""
	}

	list, err := h.alerts.ListFor(r.Context(), role)
	if err != nil {
		writeError(w, err, "list alerts")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}
