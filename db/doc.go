// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles connections and database schema creation.

# Connecting

Open accepts "postgres" (lib/pq) or "sqlite" (modernc.org/sqlite):

	conn, err := db.Open(db.TypePostgres, "postgres://...")

SQLite connections always enable foreign keys and a busy timeout.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The same DDL runs on both databases; timestamps are BIGINT unix milliseconds
(see ToMillis and FromMillis).

# Tables

  - profiles: users with a role and region
  - routes, route_stops, buses, schedules: fleet data
  - voting_topics: extra-bus requests with status and version
  - voting_options: options per topic
  - votes: one vote per (topic, student)
  - driver_response_pending: one response window per topic
  - driver_responses: accept/decline per (topic, driver)
  - notifications: in-app messages, unique dedupe_key
  - alerts: role-targeted announcements
  - complaints, complaint_responses

# Relationships

	profiles 1──* voting_topics (requester)
	voting_topics 1──* voting_options 1──* votes
	voting_topics 1──1 driver_response_pending
	complaints 1──* complaint_responses
	routes 1──* route_stops, routes 1──* schedules
*/
package db
