// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms).

# Identity and Roles

Every authenticated request carries X-User-ID and X-User-Key, where the key
is auth.GenerateUserKey(userID, salt). RequireRole checks the key, loads the
profile and enforces the role list:

	authn := middleware.NewAuthenticator(cfg.UserKeySalt, lookup)
	mux.HandleFunc("POST /topics/{id}/approve",
		middleware.WithLogging(authn.RequireRole(h.Approve, models.RoleCoordinator, models.RoleAdmin)))

Handlers read the caller with UserFromContext. A bad key is 401, a role
outside the list is 403.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(mux),
	}

Allows methods GET, POST, PUT, DELETE, OPTIONS with headers
Content-Type, X-User-ID, X-User-Key.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

GetClientIP returns the original client IP (X-Forwarded-For, X-Real-IP,
then RemoteAddr). Request logs record it.
*/
package middleware
