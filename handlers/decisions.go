// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"

	"github.com/campusbus/extrabus/decisions"
	"github.com/campusbus/extrabus/middleware"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/topics"
)

// DecisionHandler serves driver responses and coordinator decisions.
type DecisionHandler struct {
	decisions *decisions.Service
	cache     *topics.Cache
}

func NewDecisionHandler(s *Services) *DecisionHandler {
	return &DecisionHandler{decisions: s.Decisions, cache: s.Poller.Cache()}
}

// Accept handles POST /topics/{id}/accept
func (h *DecisionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.driverResponse(w, r, h.decisions.Accept, "accept topic")
}

// Decline handles POST /topics/{id}/decline
func (h *DecisionHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.driverResponse(w, r, h.decisions.Decline, "decline topic")
}

func (h *DecisionHandler) driverResponse(w http.ResponseWriter, r *http.Request,
	respond func(context.Context, string, models.Profile) (models.VotingTopic, error), action string) {
	driver, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	topic, err := respond(r.Context(), r.PathValue("id"), driver)
	h.reply(w, topic, err, action)
}

// Assign handles POST /topics/{id}/assign
func (h *DecisionHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req models.AssignDriverRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	topic, err := h.decisions.Assign(r.Context(), r.PathValue("id"), req.DriverID)
	h.reply(w, topic, err, "assign driver")
}

// Approve handles POST /topics/{id}/approve
func (h *DecisionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	topic, err := h.decisions.Approve(r.Context(), r.PathValue("id"))
	h.reply(w, topic, err, "approve topic")
}

// Reject handles POST /topics/{id}/reject
func (h *DecisionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	var req models.RejectTopicRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	topic, err := h.decisions.Reject(r.Context(), r.PathValue("id"), req.Reason)
	h.reply(w, topic, err, "reject topic")
}

// Complete handles POST /topics/{id}/complete
func (h *DecisionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	topic, err := h.decisions.Complete(r.Context(), r.PathValue("id"))
	h.reply(w, topic, err, "complete topic")
}

func (h *DecisionHandler) reply(w http.ResponseWriter, topic models.VotingTopic, err error, action string) {
	if err != nil {
		writeError(w, err, action)
		return
	}
	h.cache.Invalidate()
	middleware.JSONResponse(w, http.StatusOK, topic)
}
