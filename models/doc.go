// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - RegisterProfileRequest: full_name, email, region, role (admin only)
  - CreateTopicRequest: title, description, route/schedule/bus refs, end_date
  - CastVoteRequest: option_id
  - AssignDriverRequest, RejectTopicRequest: coordinator decisions
  - CreateRouteRequest, AddStopRequest, CreateBusRequest, CreateScheduleRequest
  - CreateAlertRequest, CreateComplaintRequest, RespondComplaintRequest

# Domain Types

  - VotingTopic: an extra-bus request and its lifecycle state
  - Vote: one student's vote on a topic
  - DriverResponsePending: the window drivers have to accept a topic
  - Notification: one in-app message for one user
  - Profile, Route, RouteStop, Bus, Schedule, Alert, Complaint

# Topic Lifecycle

	active → processing → {driver_assigned, pending_coordinator} → {approved, rejected}
	active → rejected (voting period ended)
	driver_assigned → completed

Terminal statuses are approved, rejected and completed.

# Roles

	RoleStudent     = "student"
	RoleDriver      = "driver"
	RoleCoordinator = "coordinator"
	RoleAdmin       = "admin"
*/
package models
