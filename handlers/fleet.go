// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/campusbus/extrabus/fleet"
	"github.com/campusbus/extrabus/middleware"
	"github.com/campusbus/extrabus/models"
)

// FleetHandler serves routes, stops, buses and schedules.
type FleetHandler struct {
	fleet *fleet.Store
}

func NewFleetHandler(s *Services) *FleetHandler {
	return &FleetHandler{fleet: s.Fleet}
}

// CreateRoute handles POST /routes
func (h *FleetHandler) CreateRoute(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRouteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	route, err := h.fleet.CreateRoute(r.Context(), req)
	if err != nil {
		writeError(w, err, "create route")
		return
	}
	slog.Info("route created", "route_id", route.ID, "region", route.Region)
	middleware.JSONResponse(w, http.StatusCreated, route)
}

// ListRoutes handles GET /routes?region=
func (h *FleetHandler) ListRoutes(w http.ResponseWriter, r *http.Request) {
	list, err := h.fleet.ListRoutes(r.Context(), r.URL.Query().Get("region"))
	if err != nil {
		writeError(w, err, "list routes")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// GetRoute handles GET /routes/{id}
func (h *FleetHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	route, err := h.fleet.GetRoute(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "get route")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, route)
}

// DeleteRoute handles DELETE /routes/{id}
func (h *FleetHandler) DeleteRoute(w http.ResponseWriter, r *http.Request) {
	if err := h.fleet.DeleteRoute(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err, "delete route")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddStop handles POST /routes/{id}/stops
func (h *FleetHandler) AddStop(w http.ResponseWriter, r *http.Request) {
	var req models.AddStopRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	stop, err := h.fleet.AddStop(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeError(w, err, "add stop")
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, stop)
}

// Stops handles GET /routes/{id}/stops
func (h *FleetHandler) Stops(w http.ResponseWriter, r *http.Request) {
	stops, err := h.fleet.Stops(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err, "list stops")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, stops)
}

// CreateBus handles POST /buses
func (h *FleetHandler) CreateBus(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	bus, err := h.fleet.CreateBus(r.Context(), req)
	if err != nil {
		writeError(w, err, "create bus")
		return
	}
	slog.Info("bus created", "bus_id", bus.ID, "plate", bus.PlateNumber)
	middleware.JSONResponse(w, http.StatusCreated, bus)
}

// ListBuses handles GET /buses
func (h *FleetHandler) ListBuses(w http.ResponseWriter, r *http.Request) {
	list, err := h.fleet.ListBuses(r.Context())
	if err != nil {
		writeError(w, err, "list buses")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// DeleteBus handles DELETE /buses/{id}
func (h *FleetHandler) DeleteBus(w http.ResponseWriter, r *http.Request) {
	if err := h.fleet.DeleteBus(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err, "delete bus")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateSchedule handles POST /schedules
func (h *FleetHandler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req models.CreateScheduleRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	sched, err := h.fleet.CreateSchedule(r.Context(), req)
	if err != nil {
		writeError(w, err, "create schedule")
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, sched)
}

// ListSchedules handles GET /schedules?route_id=
func (h *FleetHandler) ListSchedules(w http.ResponseWriter, r *http.Request) {
	list, err := h.fleet.ListSchedules(r.Context(), r.URL.Query().Get("route_id"))
	if err != nil {
		writeError(w, err, "list schedules")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}
