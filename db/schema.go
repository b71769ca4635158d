// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// The schema is shared by PostgreSQL and SQLite, so it sticks to portable
// types. Timestamps are unix milliseconds.
const schema = `
-- Profiles
CREATE TABLE IF NOT EXISTS profiles (
    id TEXT PRIMARY KEY,
    full_name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    role TEXT NOT NULL CHECK (role IN ('student', 'driver', 'coordinator', 'admin')),
    region TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_profiles_role_region ON profiles(role, region);

-- Routes
CREATE TABLE IF NOT EXISTS routes (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    region TEXT NOT NULL,
    start_point TEXT NOT NULL,
    end_point TEXT NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS route_stops (
    id TEXT PRIMARY KEY,
    route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    latitude DOUBLE PRECISION NOT NULL,
    longitude DOUBLE PRECISION NOT NULL,
    stop_order INTEGER NOT NULL,
    UNIQUE (route_id, stop_order)
);

-- Buses
CREATE TABLE IF NOT EXISTS buses (
    id TEXT PRIMARY KEY,
    plate_number TEXT NOT NULL UNIQUE,
    capacity INTEGER NOT NULL CHECK (capacity > 0),
    route_id TEXT REFERENCES routes(id) ON DELETE SET NULL,
    driver_id TEXT REFERENCES profiles(id) ON DELETE SET NULL,
    created_at BIGINT NOT NULL
);

-- Schedules
CREATE TABLE IF NOT EXISTS schedules (
    id TEXT PRIMARY KEY,
    route_id TEXT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
    bus_id TEXT REFERENCES buses(id) ON DELETE SET NULL,
    departure_time TEXT NOT NULL,
    day_of_week INTEGER NOT NULL CHECK (day_of_week >= 0 AND day_of_week <= 6)
);

CREATE INDEX IF NOT EXISTS idx_schedules_route_id ON schedules(route_id);

-- Voting topics
CREATE TABLE IF NOT EXISTS voting_topics (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    requester_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    region TEXT NOT NULL,
    route_id TEXT REFERENCES routes(id) ON DELETE SET NULL,
    schedule_id TEXT REFERENCES schedules(id) ON DELETE SET NULL,
    bus_id TEXT REFERENCES buses(id) ON DELETE SET NULL,
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN (
        'active', 'processing', 'driver_assigned', 'pending_coordinator',
        'approved', 'rejected', 'completed')),
    weighted_votes DOUBLE PRECISION NOT NULL DEFAULT 0,
    assigned_driver_id TEXT REFERENCES profiles(id) ON DELETE SET NULL,
    rejection_reason TEXT,
    version BIGINT NOT NULL DEFAULT 1,
    start_date BIGINT NOT NULL,
    end_date BIGINT NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_voting_topics_status ON voting_topics(status);

CREATE TABLE IF NOT EXISTS voting_options (
    id TEXT PRIMARY KEY,
    topic_id TEXT NOT NULL REFERENCES voting_topics(id) ON DELETE CASCADE,
    label TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_voting_options_topic_id ON voting_options(topic_id);

-- Votes: one per (topic, student)
CREATE TABLE IF NOT EXISTS votes (
    id TEXT PRIMARY KEY,
    topic_id TEXT NOT NULL REFERENCES voting_topics(id) ON DELETE CASCADE,
    student_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    option_id TEXT NOT NULL REFERENCES voting_options(id) ON DELETE CASCADE,
    created_at BIGINT NOT NULL,
    UNIQUE (topic_id, student_id)
);

CREATE INDEX IF NOT EXISTS idx_votes_created_at ON votes(created_at);
CREATE INDEX IF NOT EXISTS idx_votes_student_id ON votes(student_id, created_at);

-- Driver response windows: one per topic
CREATE TABLE IF NOT EXISTS driver_response_pending (
    id TEXT PRIMARY KEY,
    topic_id TEXT NOT NULL UNIQUE REFERENCES voting_topics(id) ON DELETE CASCADE,
    region TEXT NOT NULL,
    title TEXT NOT NULL,
    expires_at BIGINT NOT NULL,
    resolved_at BIGINT,
    outcome TEXT
);

CREATE INDEX IF NOT EXISTS idx_driver_response_pending_expires ON driver_response_pending(expires_at);

CREATE TABLE IF NOT EXISTS driver_responses (
    topic_id TEXT NOT NULL REFERENCES voting_topics(id) ON DELETE CASCADE,
    driver_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    response TEXT NOT NULL CHECK (response IN ('accept', 'decline')),
    created_at BIGINT NOT NULL,
    PRIMARY KEY (topic_id, driver_id)
);

-- Notifications
CREATE TABLE IF NOT EXISTS notifications (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    metadata TEXT NOT NULL DEFAULT '{}',
    is_read BOOLEAN NOT NULL DEFAULT FALSE,
    dedupe_key TEXT NOT NULL UNIQUE,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notifications_user_id ON notifications(user_id, created_at);

-- Alerts
CREATE TABLE IF NOT EXISTS alerts (
    id TEXT PRIMARY KEY,
    target_role TEXT NOT NULL,
    title TEXT NOT NULL,
    message TEXT NOT NULL,
    severity TEXT NOT NULL DEFAULT 'info',
    created_by TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    created_at BIGINT NOT NULL
);

-- Complaints
CREATE TABLE IF NOT EXISTS complaints (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    subject TEXT NOT NULL,
    description TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'in_progress', 'resolved')),
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_complaints_user_id ON complaints(user_id);

CREATE TABLE IF NOT EXISTS complaint_responses (
    id TEXT PRIMARY KEY,
    complaint_id TEXT NOT NULL REFERENCES complaints(id) ON DELETE CASCADE,
    responder_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
    message TEXT NOT NULL,
    created_at BIGINT NOT NULL
);
`
