// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/campusbus/extrabus/middleware"
	"github.com/campusbus/extrabus/notify"
)

type NotificationHandler struct {
	notifier *notify.Notifier
}

func NewNotificationHandler(s *Services) *NotificationHandler {
	return &NotificationHandler{notifier: s.Notifier}
}

// List handles GET /notifications?unread=true
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := h.notifier.Inbox(r.Context(), userID, unreadOnly)
	if err != nil {
		writeError(w, err, "list notifications")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, list)
}

// MarkRead handles POST /notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.notifier.MarkRead(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, err, "mark notification read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
