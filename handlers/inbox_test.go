// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/notify"
	"github.com/campusbus/extrabus/testutil"
)

func TestNotifications(t *testing.T) {
	env := newTestEnv(t)
	handler := NewNotificationHandler(env.svc)
	owner := testutil.CreateTestProfile(t, env.db, models.RoleStudent, "north")
	stranger := testutil.CreateTestProfile(t, env.db, models.RoleStudent, "north")

	env.svc.Notifier.Notify(context.Background(), []string{owner.ID}, notify.Message{
		Title: "Extra bus approved",
		Body:  "See you at 22:30",
		Meta:  models.NotificationMetadata{TopicID: "t1", ActionType: models.ActionApproved},
		Key:   "topic/t1/v4/request_approved",
	})

	w := httptest.NewRecorder()
	handler.List(w, asUser(testutil.MakeRequest("GET", "/notifications", nil, nil), owner))
	testutil.AssertStatus(t, w, http.StatusOK)
	var inbox []models.Notification
	testutil.AssertJSON(t, w, &inbox)
	if len(inbox) != 1 {
		t.Fatalf("Expected 1 notification, got %d", len(inbox))
	}
	if inbox[0].Metadata.ActionType != models.ActionApproved {
		t.Errorf("Expected action %s, got %s", models.ActionApproved, inbox[0].Metadata.ActionType)
	}

	markRead := func(p models.Profile) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/notifications/"+inbox[0].ID+"/read", nil, nil)
		req.SetPathValue("id", inbox[0].ID)
		w := httptest.NewRecorder()
		handler.MarkRead(w, asUser(req, p))
		return w
	}
	testutil.AssertStatus(t, markRead(stranger), http.StatusNotFound)
	testutil.AssertStatus(t, markRead(owner), http.StatusNoContent)

	w = httptest.NewRecorder()
	handler.List(w, asUser(testutil.MakeRequest("GET", "/notifications?unread=true", nil, nil), owner))
	var unread []models.Notification
	testutil.AssertJSON(t, w, &unread)
	if len(unread) != 0 {
		t.Errorf("Expected no unread notifications, got %d", len(unread))
	}
}

func TestAlerts(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAlertHandler(env.svc)
	coordinator := testutil.CreateTestProfile(t, env.db, models.RoleCoordinator, "")
	driver := testutil.CreateTestProfile(t, env.db, models.RoleDriver, "north")
	student := testutil.CreateTestProfile(t, env.db, models.RoleStudent, "north")
	admin := testutil.CreateTestProfile(t, env.db, models.RoleAdmin, "")

	publish := []struct {
		name           string
		req            models.CreateAlertRequest
		expectedStatus int
	}{
		{"everyone", models.CreateAlertRequest{Title: "Snow", Message: "Expect delays"}, http.StatusCreated},
		{"drivers only", models.CreateAlertRequest{TargetRole: "driver", Title: "Depot", Message: "Depot closes early", Severity: "warning"}, http.StatusCreated},
		{"unknown severity", models.CreateAlertRequest{Title: "Oops", Message: "x", Severity: "panic"}, http.StatusBadRequest},
		{"unknown role", models.CreateAlertRequest{TargetRole: "pilot", Title: "Oops", Message: "x"}, http.StatusBadRequest},
	}
	for _, tt := range publish {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.Create(w, asUser(testutil.MakeRequest("POST", "/alerts", tt.req, nil), coordinator))
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	visible := []struct {
		viewer models.Profile
		want   int
	}{
		{student, 1},
		{driver, 2},
		{admin, 2},
	}
	for _, tt := range visible {
		w := httptest.NewRecorder()
		handler.List(w, asUser(testutil.MakeRequest("GET", "/alerts", nil, nil), tt.viewer))
		var list []models.Alert
		testutil.AssertJSON(t, w, &list)
		if len(list) != tt.want {
			t.Errorf("Expected %s to see %d alerts, got %d", tt.viewer.Role, tt.want, len(list))
		}
	}
}

func TestComplaints(t *testing.T) {
	env := newTestEnv(t)
	handler := NewComplaintHandler(env.svc)
	student := testutil.CreateTestProfile(t, env.db, models.RoleStudent, "north")
	other := testutil.CreateTestProfile(t, env.db, models.RoleStudent, "north")
	coordinator := testutil.CreateTestProfile(t, env.db, models.RoleCoordinator, "")

	w := httptest.NewRecorder()
	handler.Create(w, asUser(testutil.MakeRequest("POST", "/complaints", models.CreateComplaintRequest{Subject: "Late bus"}, nil), student))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = httptest.NewRecorder()
	handler.Create(w, asUser(testutil.MakeRequest("POST", "/complaints", models.CreateComplaintRequest{
		Subject: "Late bus", Description: "The 22:30 left 20 minutes late",
	}, nil), student))
	testutil.AssertStatus(t, w, http.StatusCreated)
	var complaint models.Complaint
	testutil.AssertJSON(t, w, &complaint)

	list := func(p models.Profile) int {
		w := httptest.NewRecorder()
		handler.List(w, asUser(testutil.MakeRequest("GET", "/complaints", nil, nil), p))
		var got []models.Complaint
		testutil.AssertJSON(t, w, &got)
		return len(got)
	}
	if n := list(other); n != 0 {
		t.Errorf("Expected another student to see 0 complaints, got %d", n)
	}
	if n := list(coordinator); n != 1 {
		t.Errorf("Expected coordinator to see 1 complaint, got %d", n)
	}

	get := func(p models.Profile) *httptest.ResponseRecorder {
		req := testutil.MakeRequest("GET", "/complaints/"+complaint.ID, nil, nil)
		req.SetPathValue("id", complaint.ID)
		w := httptest.NewRecorder()
		handler.Get(w, asUser(req, p))
		return w
	}
	testutil.AssertStatus(t, get(other), http.StatusNotFound)
	testutil.AssertStatus(t, get(student), http.StatusOK)

	req := testutil.MakeRequest("POST", "/complaints/"+complaint.ID+"/responses", models.RespondComplaintRequest{Message: "We spoke to the driver"}, nil)
	req.SetPathValue("id", complaint.ID)
	w = httptest.NewRecorder()
	handler.Respond(w, asUser(req, coordinator))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = get(student)
	var updated models.Complaint
	testutil.AssertJSON(t, w, &updated)
	if updated.Status != models.ComplaintInProgress {
		t.Errorf("Expected status in_progress, got %s", updated.Status)
	}
	if len(updated.Responses) != 1 {
		t.Errorf("Expected 1 response, got %d", len(updated.Responses))
	}

	n := testutil.CountRows(t, env.db, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, student.ID)
	if n != 1 {
		t.Errorf("Expected complainant to be notified once, got %d", n)
	}

	resolve := func() *httptest.ResponseRecorder {
		req := testutil.MakeRequest("POST", "/complaints/"+complaint.ID+"/resolve", nil, nil)
		req.SetPathValue("id", complaint.ID)
		w := httptest.NewRecorder()
		handler.Resolve(w, asUser(req, coordinator))
		return w
	}
	testutil.AssertStatus(t, resolve(), http.StatusNoContent)
	testutil.AssertStatus(t, resolve(), http.StatusConflict)
}
