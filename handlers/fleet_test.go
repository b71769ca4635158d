// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/testutil"
)

func TestRouteLifecycle(t *testing.T) {
	env := newTestEnv(t)
	handler := NewFleetHandler(env.svc)

	w := httptest.NewRecorder()
	handler.CreateRoute(w, testutil.MakeRequest("POST", "/routes", models.CreateRouteRequest{
		Name: "Night Loop", Region: "north", StartPoint: "Library", EndPoint: "Dorms",
	}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)
	var route models.Route
	testutil.AssertJSON(t, w, &route)

	w = httptest.NewRecorder()
	handler.CreateRoute(w, testutil.MakeRequest("POST", "/routes", models.CreateRouteRequest{Name: "Half"}, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	stops := []struct {
		name           string
		req            models.AddStopRequest
		expectedStatus int
	}{
		{"first stop", models.AddStopRequest{Name: "Library", Latitude: 52.1, Longitude: 5.1, StopOrder: 1}, http.StatusCreated},
		{"second stop", models.AddStopRequest{Name: "Dorms", Latitude: 52.2, Longitude: 5.2, StopOrder: 2}, http.StatusCreated},
		{"duplicate order", models.AddStopRequest{Name: "Gym", Latitude: 52.3, Longitude: 5.3, StopOrder: 2}, http.StatusConflict},
		{"latitude out of range", models.AddStopRequest{Name: "Moon", Latitude: 120, Longitude: 5.3, StopOrder: 3}, http.StatusBadRequest},
	}
	for _, tt := range stops {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.MakeRequest("POST", "/routes/"+route.ID+"/stops", tt.req, nil)
			req.SetPathValue("id", route.ID)
			w := httptest.NewRecorder()
			handler.AddStop(w, req)
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	req := testutil.MakeRequest("GET", "/routes/"+route.ID+"/stops", nil, nil)
	req.SetPathValue("id", route.ID)
	w = httptest.NewRecorder()
	handler.Stops(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)
	var list []models.RouteStop
	testutil.AssertJSON(t, w, &list)
	if len(list) != 2 {
		t.Errorf("Expected 2 stops, got %d", len(list))
	}

	w = httptest.NewRecorder()
	handler.ListRoutes(w, testutil.MakeRequest("GET", "/routes?region=south", nil, nil))
	var routes []models.Route
	testutil.AssertJSON(t, w, &routes)
	if len(routes) != 0 {
		t.Errorf("Expected no south routes, got %d", len(routes))
	}

	req = testutil.MakeRequest("DELETE", "/routes/"+route.ID, nil, nil)
	req.SetPathValue("id", route.ID)
	w = httptest.NewRecorder()
	handler.DeleteRoute(w, req)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	req = testutil.MakeRequest("GET", "/routes/"+route.ID, nil, nil)
	req.SetPathValue("id", route.ID)
	w = httptest.NewRecorder()
	handler.GetRoute(w, req)
	testutil.AssertStatus(t, w, http.StatusNotFound)
}

func TestBusesAndSchedules(t *testing.T) {
	env := newTestEnv(t)
	handler := NewFleetHandler(env.svc)
	driver := testutil.CreateTestProfile(t, env.db, models.RoleDriver, "north")
	student := testutil.CreateTestProfile(t, env.db, models.RoleStudent, "north")

	w := httptest.NewRecorder()
	handler.CreateRoute(w, testutil.MakeRequest("POST", "/routes", models.CreateRouteRequest{
		Name: "Campus Express", Region: "north", StartPoint: "Gate A", EndPoint: "Gate B",
	}, nil))
	var route models.Route
	testutil.AssertJSON(t, w, &route)

	buses := []struct {
		name           string
		req            models.CreateBusRequest
		expectedStatus int
	}{
		{"bus with driver", models.CreateBusRequest{PlateNumber: "ab-123", Capacity: 40, RouteID: &route.ID, DriverID: &driver.ID}, http.StatusCreated},
		{"duplicate plate", models.CreateBusRequest{PlateNumber: "AB-123", Capacity: 30}, http.StatusConflict},
		{"zero capacity", models.CreateBusRequest{PlateNumber: "CD-456", Capacity: 0}, http.StatusBadRequest},
		{"student as driver", models.CreateBusRequest{PlateNumber: "EF-789", Capacity: 20, DriverID: &student.ID}, http.StatusBadRequest},
	}
	var bus models.Bus
	for _, tt := range buses {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.CreateBus(w, testutil.MakeRequest("POST", "/buses", tt.req, nil))
			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus == http.StatusCreated {
				testutil.AssertJSON(t, w, &bus)
				if bus.PlateNumber != "AB-123" {
					t.Errorf("Expected plate AB-123, got %s", bus.PlateNumber)
				}
			}
		})
	}

	w = httptest.NewRecorder()
	handler.CreateSchedule(w, testutil.MakeRequest("POST", "/schedules", models.CreateScheduleRequest{
		RouteID: route.ID, BusID: &bus.ID, DepartureTime: "22:30", DayOfWeek: 5,
	}, nil))
	testutil.AssertStatus(t, w, http.StatusCreated)

	w = httptest.NewRecorder()
	handler.CreateSchedule(w, testutil.MakeRequest("POST", "/schedules", models.CreateScheduleRequest{
		RouteID: route.ID, DepartureTime: "25:00", DayOfWeek: 5,
	}, nil))
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = httptest.NewRecorder()
	handler.ListSchedules(w, testutil.MakeRequest("GET", "/schedules?route_id="+route.ID, nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)
	var schedules []models.Schedule
	testutil.AssertJSON(t, w, &schedules)
	if len(schedules) != 1 {
		t.Errorf("Expected 1 schedule, got %d", len(schedules))
	}

	req := testutil.MakeRequest("DELETE", "/buses/"+bus.ID, nil, nil)
	req.SetPathValue("id", bus.ID)
	w = httptest.NewRecorder()
	handler.DeleteBus(w, req)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	w = httptest.NewRecorder()
	handler.ListBuses(w, testutil.MakeRequest("GET", "/buses", nil, nil))
	var remaining []models.Bus
	testutil.AssertJSON(t, w, &remaining)
	if len(remaining) != 0 {
		t.Errorf("Expected no buses after delete, got %d", len(remaining))
	}
}
