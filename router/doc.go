// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the extrabus API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	svc := handlers.NewServices(conn, cfg, nil, messenger, notify.DefaultRetry(), logger)
	mux := router.NewRouter(svc, cfg)

Every route except health, root and self-registration requires the
X-User-ID and X-User-Key headers. Routes limited to roles answer 403 to
other roles.

# Endpoints

Profiles:

	POST /profiles        - Self-register as a student (public)
	POST /admin/profiles  - Create any role (admin)
	GET  /profiles?role=  - List profiles (admin, coordinator)
	GET  /me              - Caller's profile

Extra-bus requests:

	POST /topics                - Open a request (student)
	GET  /topics?status=        - List, cached for 5s
	GET  /topics/{id}           - Topic with options
	POST /topics/{id}/votes     - Vote (student)
	POST /topics/{id}/accept    - Take the trip (driver)
	POST /topics/{id}/decline   - Refuse the trip (driver)
	POST /topics/{id}/assign    - Pick a driver (coordinator, admin)
	POST /topics/{id}/approve   - Approve (coordinator, admin)
	POST /topics/{id}/reject    - Reject with reason (coordinator, admin)
	POST /topics/{id}/complete  - Mark the trip run (coordinator, admin)

Fleet: /routes, /routes/{id}/stops, /buses and /schedules. Writes are
admin only; schedules may also be created by coordinators.

Inbox: GET /notifications, POST /notifications/{id}/read, GET /alerts,
POST /alerts (coordinator, admin).

Complaints: POST /complaints (student, driver), GET /complaints,
GET /complaints/{id}, and responses/resolve for coordinators and admins.
*/
package router
