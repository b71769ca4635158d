// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/campusbus/extrabus/auth"
	"github.com/campusbus/extrabus/models"
)

// Identity headers sent with every authenticated request
const (
	HeaderUserID  = "X-User-ID"
	HeaderUserKey = "X-User-Key"
)

// ErrUnknownUser is returned by a ProfileLookup for a missing profile.
var ErrUnknownUser = errors.New("unknown user")

// ProfileLookup loads the profile behind an authenticated user ID.
type ProfileLookup func(ctx context.Context, userID string) (models.Profile, error)

type userKey struct{}

// WithUser returns a context carrying p.
func WithUser(ctx context.Context, p models.Profile) context.Context {
	return context.WithValue(ctx, userKey{}, p)
}

// UserFromContext returns the profile stored by RequireRole.
func UserFromContext(ctx context.Context) (models.Profile, bool) {
	p, ok := ctx.Value(userKey{}).(models.Profile)
	return p, ok
}

// Authenticator checks user keys and roles.
type Authenticator struct {
	salt   string
	lookup ProfileLookup
}

func NewAuthenticator(salt string, lookup ProfileLookup) *Authenticator {
	return &Authenticator{salt: salt, lookup: lookup}
}

// RequireRole rejects requests without a valid user key (401) or whose
// profile role is not in roles (403). No roles admits any valid user.
func (a *Authenticator) RequireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(HeaderUserID)
		if err := auth.ValidateUserKey(userID, r.Header.Get(HeaderUserKey), a.salt); err != nil {
			ErrorResponse(w, http.StatusUnauthorized, "Invalid user key")
			return
		}

		profile, err := a.lookup(r.Context(), userID)
		if errors.Is(err, ErrUnknownUser) {
			ErrorResponse(w, http.StatusUnauthorized, "Unknown user")
			return
		}
		if err != nil {
			slog.Error("failed to load profile", "user_id", userID, "error", err)
			ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}

		if err := auth.Authorize(profile.Role, roles...); err != nil {
			ErrorResponse(w, http.StatusForbidden, "Role "+profile.Role+" may not do this")
			return
		}

		next(w, r.WithContext(WithUser(r.Context(), profile)))
	}
}
