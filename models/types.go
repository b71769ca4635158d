// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Topic status constants
const (
	StatusActive             = "active"
	StatusProcessing         = "processing"
	StatusDriverAssigned     = "driver_assigned"
	StatusPendingCoordinator = "pending_coordinator"
	StatusApproved           = "approved"
	StatusRejected           = "rejected"
	StatusCompleted          = "completed"
)

// Profile roles
const (
	RoleStudent     = "student"
	RoleDriver      = "driver"
	RoleCoordinator = "coordinator"
	RoleAdmin       = "admin"
)

// Notification action types, carried in Notification metadata
const (
	ActionThresholdReached = "threshold_reached"
	ActionDriverRequested  = "driver_requested"
	ActionEscalated        = "escalated_to_coordinator"
	ActionDriverAssigned   = "driver_assigned"
	ActionApproved         = "request_approved"
	ActionRejected         = "request_rejected"
	ActionExpired          = "request_expired"
	ActionCompleted        = "request_completed"
	ActionComplaintReply   = "complaint_response"
)

// Driver response window outcomes
const (
	OutcomeAccepted  = "accepted"
	OutcomeEscalated = "escalated"
	OutcomeClosed    = "closed"
)

// Driver responses
const (
	ResponseAccept  = "accept"
	ResponseDecline = "decline"
)

// Complaint status constants
const (
	ComplaintOpen       = "open"
	ComplaintInProgress = "in_progress"
	ComplaintResolved   = "resolved"
)

// AlertAllRoles targets every role
const AlertAllRoles = "all"

// Request types

type RegisterProfileRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Region   string `json:"region"`
	Role     string `json:"role,omitempty"`
}

type CreateTopicRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	RouteID     *string  `json:"route_id,omitempty"`
	ScheduleID  *string  `json:"schedule_id,omitempty"`
	BusID       *string  `json:"bus_id,omitempty"`
	EndDate     *string  `json:"end_date,omitempty"` // RFC 3339
	Options     []string `json:"options,omitempty"`
}

type CastVoteRequest struct {
	OptionID string `json:"option_id"`
}

type AssignDriverRequest struct {
	DriverID string `json:"driver_id"`
}

type RejectTopicRequest struct {
	Reason string `json:"reason"`
}

type CreateRouteRequest struct {
	Name       string `json:"name"`
	Region     string `json:"region"`
	StartPoint string `json:"start_point"`
	EndPoint   string `json:"end_point"`
}

type AddStopRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	StopOrder int     `json:"stop_order"`
}

type CreateBusRequest struct {
	PlateNumber string  `json:"plate_number"`
	Capacity    int     `json:"capacity"`
	RouteID     *string `json:"route_id,omitempty"`
	DriverID    *string `json:"driver_id,omitempty"`
}

type CreateScheduleRequest struct {
	RouteID       string  `json:"route_id"`
	BusID         *string `json:"bus_id,omitempty"`
	DepartureTime string  `json:"departure_time"` // HH:MM
	DayOfWeek     int     `json:"day_of_week"`    // 0 = Sunday
}

type CreateAlertRequest struct {
	TargetRole string `json:"target_role"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	Severity   string `json:"severity"`
}

type CreateComplaintRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
}

type RespondComplaintRequest struct {
	Message string `json:"message"`
}

// Response types

type RegisterProfileResponse struct {
	UserID  string `json:"user_id"`
	UserKey string `json:"user_key"`
	Role    string `json:"role"`
}

type CastVoteResponse struct {
	VoteID        string  `json:"vote_id"`
	WeightedVotes float64 `json:"weighted_votes"`
	Status        string  `json:"status"`
}

type TopicWithOptions struct {
	Topic   VotingTopic    `json:"topic"`
	Options []VotingOption `json:"options"`
}

type CreatedResponse struct {
	ID string `json:"id"`
}

// Domain types

type Profile struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Region    string    `json:"region"`
	CreatedAt time.Time `json:"created_at"`
}

type VotingTopic struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	RequesterID      string    `json:"requester_id"`
	Region           string    `json:"region"`
	RouteID          *string   `json:"route_id,omitempty"`
	ScheduleID       *string   `json:"schedule_id,omitempty"`
	BusID            *string   `json:"bus_id,omitempty"`
	Status           string    `json:"status"`
	WeightedVotes    float64   `json:"weighted_votes"`
	AssignedDriverID *string   `json:"assigned_driver_id,omitempty"`
	RejectionReason  *string   `json:"rejection_reason,omitempty"`
	Version          int64     `json:"version"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type VotingOption struct {
	ID      string `json:"id"`
	TopicID string `json:"topic_id"`
	Label   string `json:"label"`
}

type Vote struct {
	ID        string    `json:"id"`
	TopicID   string    `json:"topic_id"`
	StudentID string    `json:"student_id"`
	OptionID  string    `json:"option_id"`
	CreatedAt time.Time `json:"created_at"`
}

type DriverResponsePending struct {
	ID         string     `json:"id"`
	TopicID    string     `json:"topic_id"`
	Region     string     `json:"region"`
	Title      string     `json:"title"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Outcome    *string    `json:"outcome,omitempty"`
}

// NotificationMetadata is stored as a JSON blob on each notification row
type NotificationMetadata struct {
	TopicID     string `json:"topic_id,omitempty"`
	ComplaintID string `json:"complaint_id,omitempty"`
	ActionType  string `json:"action_type"`
}

type Notification struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Metadata  NotificationMetadata `json:"metadata"`
	IsRead    bool                 `json:"is_read"`
	CreatedAt time.Time            `json:"created_at"`
}

type Alert struct {
	ID         string    `json:"id"`
	TargetRole string    `json:"target_role"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Severity   string    `json:"severity"`
	CreatedBy  string    `json:"created_by"`
	CreatedAt  time.Time `json:"created_at"`
}

type Route struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Region     string    `json:"region"`
	StartPoint string    `json:"start_point"`
	EndPoint   string    `json:"end_point"`
	CreatedAt  time.Time `json:"created_at"`
}

type RouteStop struct {
	ID        string  `json:"id"`
	RouteID   string  `json:"route_id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	StopOrder int     `json:"stop_order"`
}

type Bus struct {
	ID          string    `json:"id"`
	PlateNumber string    `json:"plate_number"`
	Capacity    int       `json:"capacity"`
	RouteID     *string   `json:"route_id,omitempty"`
	DriverID    *string   `json:"driver_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Schedule struct {
	ID            string  `json:"id"`
	RouteID       string  `json:"route_id"`
	BusID         *string `json:"bus_id,omitempty"`
	DepartureTime string  `json:"departure_time"`
	DayOfWeek     int     `json:"day_of_week"`
}

type Complaint struct {
	ID          string              `json:"id"`
	UserID      string              `json:"user_id"`
	Subject     string              `json:"subject"`
	Description string              `json:"description"`
	Status      string              `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Responses   []ComplaintResponse `json:"responses,omitempty"`
}

type ComplaintResponse struct {
	ID          string    `json:"id"`
	ComplaintID string    `json:"complaint_id"`
	ResponderID string    `json:"responder_id"`
	Message     string    `json:"message"`
	CreatedAt   time.Time `json:"created_at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
