// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the extrabus API server.

extrabus lets students request an extra campus bus. Students vote on a
request; once enough weighted votes arrive the regional drivers are asked
to take the trip, and coordinators step in when nobody does.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=extrabus.db USER_KEY_SALT=... go run .

Or with flags against PostgreSQL:

	go run . -t postgres -d "postgres://..." --user-salt ...

A .env file in the working directory is loaded first if present.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite path or PostgreSQL connection string
  - USER_KEY_SALT (--user-salt): Secret for user key HMAC

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - VOTE_THRESHOLD (--threshold): weighted votes needed (default: 25)
  - POLL_INTERVAL (--poll-interval): background sweep interval (default: 60s)
  - BOOTSTRAP_ADMIN_ID: admin profile created at startup; its key is logged
  - TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID: channel for broadcast messages

# Architecture

  - ledger: vote casting rules and vote expiry
  - topics: topic storage, status transitions, list cache
  - threshold: weighted counting and escalation
  - decisions: driver responses and coordinator decisions
  - notify: in-app notifications and the Telegram webhook
  - poller: the periodic sweep
  - profiles, fleet, alerts, complaints: supporting data
  - handlers, router, middleware: the HTTP layer
  - db, cliparse, auth, clock, models: shared plumbing

See package documentation for each component.
*/
package main
