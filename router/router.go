// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"context"
	"errors"
	"net/http"

	"github.com/campusbus/extrabus/cliparse"
	"github.com/campusbus/extrabus/handlers"
	"github.com/campusbus/extrabus/middleware"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/profiles"
)

func NewRouter(svc *handlers.Services, cfg cliparse.Config) *http.ServeMux {
	mux := http.NewServeMux()

	authn := middleware.NewAuthenticator(cfg.UserKeySalt, func(ctx context.Context, userID string) (models.Profile, error) {
		p, err := svc.Profiles.Get(ctx, userID)
		if errors.Is(err, profiles.ErrNotFound) {
			return models.Profile{}, middleware.ErrUnknownUser
		}
		return p, err
	})

	// route registers h behind request logging and the given roles.
	// No roles admits any authenticated user.
	route := func(pattern string, h http.HandlerFunc, roles ...string) {
		mux.HandleFunc(pattern, middleware.WithLogging(authn.RequireRole(h, roles...)))
	}
	const (
		student     = models.RoleStudent
		driver      = models.RoleDriver
		coordinator = models.RoleCoordinator
		admin       = models.RoleAdmin
	)

	// Initialize handlers
	profileHandler := handlers.NewProfileHandler(svc, cfg)
	topicHandler := handlers.NewTopicHandler(svc)
	decisionHandler := handlers.NewDecisionHandler(svc)
	notificationHandler := handlers.NewNotificationHandler(svc)
	fleetHandler := handlers.NewFleetHandler(svc)
	alertHandler := handlers.NewAlertHandler(svc)
	complaintHandler := handlers.NewComplaintHandler(svc)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Profiles
	mux.HandleFunc("POST /profiles", middleware.WithLogging(profileHandler.Register))
	route("POST /admin/profiles", profileHandler.CreateProfile, admin)
	route("GET /profiles", profileHandler.List, admin, coordinator)
	route("GET /me", profileHandler.Me)

	// Fleet
	route("POST /routes", fleetHandler.CreateRoute, admin)
	route("GET /routes", fleetHandler.ListRoutes)
	route("GET /routes/{id}", fleetHandler.GetRoute)
	route("DELETE /routes/{id}", fleetHandler.DeleteRoute, admin)
	route("POST /routes/{id}/stops", fleetHandler.AddStop, admin)
	route("GET /routes/{id}/stops", fleetHandler.Stops)
	route("POST /buses", fleetHandler.CreateBus, admin)
	route("GET /buses", fleetHandler.ListBuses)
	route("DELETE /buses/{id}", fleetHandler.DeleteBus, admin)
	route("POST /schedules", fleetHandler.CreateSchedule, admin, coordinator)
	route("GET /schedules", fleetHandler.ListSchedules)

	// Topics and votes
	route("POST /topics", topicHandler.Create, student)
	route("GET /topics", topicHandler.List)
	route("GET /topics/{id}", topicHandler.Get)
	route("POST /topics/{id}/votes", topicHandler.CastVote, student)

	// Driver responses and coordinator decisions
	route("POST /topics/{id}/accept", decisionHandler.Accept, driver)
	route("POST /topics/{id}/decline", decisionHandler.Decline, driver)
	route("POST /topics/{id}/assign", decisionHandler.Assign, coordinator, admin)
	route("POST /topics/{id}/approve", decisionHandler.Approve, coordinator, admin)
	route("POST /topics/{id}/reject", decisionHandler.Reject, coordinator, admin)
	route("POST /topics/{id}/complete", decisionHandler.Complete, coordinator, admin)

	// Notifications and alerts
	route("GET /notifications", notificationHandler.List)
	route("POST /notifications/{id}/read", notificationHandler.MarkRead)
	route("POST /alerts", alertHandler.Create, coordinator, admin)
	route("GET /alerts", alertHandler.List)

	// Complaints
	route("POST /complaints", complaintHandler.Create, student, driver)
	route("GET /complaints", complaintHandler.List)
	route("GET /complaints/{id}", complaintHandler.Get)
	route("POST /complaints/{id}/responses", complaintHandler.Respond, coordinator, admin)
	route("POST /complaints/{id}/resolve", complaintHandler.Resolve, coordinator, admin)

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("extrabus API v1"))
	})

	return mux
}
