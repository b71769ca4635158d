// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campusbus/extrabus/auth"
	"github.com/campusbus/extrabus/models"
)

const testSalt = "test-user-salt"

func testLookup(profiles ...models.Profile) ProfileLookup {
	byID := make(map[string]models.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.ID] = p
	}
	return func(_ context.Context, id string) (models.Profile, error) {
		if id == "broken" {
			return models.Profile{}, errors.New("db down")
		}
		p, ok := byID[id]
		if !ok {
			return models.Profile{}, ErrUnknownUser
		}
		return p, nil
	}
}

func TestRequireRole(t *testing.T) {
	student := models.Profile{ID: "s1", Role: models.RoleStudent, Region: "north"}
	coordinator := models.Profile{ID: "c1", Role: models.RoleCoordinator}
	a := NewAuthenticator(testSalt, testLookup(student, coordinator))

	var seen models.Profile
	next := func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}

	testCases := []struct {
		name     string
		userID   string
		userKey  string
		roles    []string
		expected int
	}{
		{"no headers", "", "", nil, http.StatusUnauthorized},
		{"wrong key", student.ID, "nope", nil, http.StatusUnauthorized},
		{"unknown user", "ghost", auth.GenerateUserKey("ghost", testSalt), nil, http.StatusUnauthorized},
		{"lookup failure", "broken", auth.GenerateUserKey("broken", testSalt), nil, http.StatusInternalServerError},
		{"any role", student.ID, auth.GenerateUserKey(student.ID, testSalt), nil, http.StatusNoContent},
		{"allowed role", coordinator.ID, auth.GenerateUserKey(coordinator.ID, testSalt), []string{models.RoleCoordinator, models.RoleAdmin}, http.StatusNoContent},
		{"forbidden role", student.ID, auth.GenerateUserKey(student.ID, testSalt), []string{models.RoleDriver}, http.StatusForbidden},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seen = models.Profile{}
			req := httptest.NewRequest("GET", "/me", nil)
			if tc.userID != "" {
				req.Header.Set(HeaderUserID, tc.userID)
			}
			if tc.userKey != "" {
				req.Header.Set(HeaderUserKey, tc.userKey)
			}
			w := httptest.NewRecorder()

			a.RequireRole(next, tc.roles...)(w, req)

			if w.Code != tc.expected {
				t.Errorf("Expected status %d, got %d. Body: %s", tc.expected, w.Code, w.Body.String())
			}
			if tc.expected == http.StatusNoContent && seen.ID != tc.userID {
				t.Errorf("Expected profile %s in context, got %+v", tc.userID, seen)
			}
		})
	}
}

func TestUserFromContext(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Error("Expected no user in empty context")
	}
	ctx := WithUser(context.Background(), models.Profile{ID: "u1"})
	if p, ok := UserFromContext(ctx); !ok || p.ID != "u1" {
		t.Errorf("UserFromContext() = %+v, %v", p, ok)
	}
}
