// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/campusbus/extrabus/alerts"
	"github.com/campusbus/extrabus/complaints"
	"github.com/campusbus/extrabus/decisions"
	"github.com/campusbus/extrabus/fleet"
	"github.com/campusbus/extrabus/ledger"
	"github.com/campusbus/extrabus/middleware"
	"github.com/campusbus/extrabus/notify"
	"github.com/campusbus/extrabus/profiles"
	"github.com/campusbus/extrabus/topics"
)

var errorStatus = []struct {
	err    error
	status int
}{
	{topics.ErrNotFound, http.StatusNotFound},
	{ledger.ErrTopicNotFound, http.StatusNotFound},
	{profiles.ErrNotFound, http.StatusNotFound},
	{fleet.ErrNotFound, http.StatusNotFound},
	{complaints.ErrNotFound, http.StatusNotFound},
	{notify.ErrNotFound, http.StatusNotFound},

	{topics.ErrInvalidTopic, http.StatusBadRequest},
	{ledger.ErrInvalidOption, http.StatusBadRequest},
	{profiles.ErrInvalidProfile, http.StatusBadRequest},
	{fleet.ErrInvalid, http.StatusBadRequest},
	{alerts.ErrInvalidAlert, http.StatusBadRequest},
	{complaints.ErrInvalidComplaint, http.StatusBadRequest},
	{decisions.ErrDriverRequired, http.StatusBadRequest},
	{decisions.ErrNotDriver, http.StatusBadRequest},
	{decisions.ErrReasonRequired, http.StatusBadRequest},

	{decisions.ErrWrongRegion, http.StatusForbidden},

	{ledger.ErrVotingClosed, http.StatusConflict},
	{ledger.ErrTopicNotActive, http.StatusConflict},
	{ledger.ErrDuplicateVote, http.StatusConflict},
	{topics.ErrInvalidTransition, http.StatusConflict},
	{topics.ErrStaleTopic, http.StatusConflict},
	{decisions.ErrNoWindow, http.StatusConflict},
	{decisions.ErrWindowExpired, http.StatusConflict},
	{decisions.ErrAlreadyResponded, http.StatusConflict},
	{complaints.ErrResolved, http.StatusConflict},
	{fleet.ErrDuplicate, http.StatusConflict},
	{profiles.ErrEmailTaken, http.StatusConflict},

	{ledger.ErrVoteCooldown, http.StatusTooManyRequests},
}

// writeError maps a domain error to its HTTP status. Unknown errors are
// logged and reported as 500 without detail.
func writeError(w http.ResponseWriter, err error, action string) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			middleware.ErrorResponse(w, e.status, err.Error())
			return
		}
	}
	slog.Error("failed to "+action, "error", err)
	middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to "+action)
}

// currentUser returns the profile RequireRole put in the request context.
func currentUser(w http.ResponseWriter, r *http.Request) (id string, role string, ok bool) {
	p, ok := middleware.UserFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Not authenticated")
		return "", "", false
	}
	return p.ID, p.Role, true
}
