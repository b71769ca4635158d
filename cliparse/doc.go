// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

Environment variables are decoded first (caarlos0/env), then CLI flags
override them:

	_ = cliparse.LoadDotEnv()
	cfg, err := cliparse.ParseFlags(os.Args[1:])

# CLI Flags

	-p              Server port
	-d              Database URL
	-t              Database type (sqlite or postgres)
	--user-salt     User key salt
	--threshold     Weighted vote threshold
	--poll-interval Background sweep interval
	--log-level     debug, info, warn or error

# Environment Variables

	PORT, DATABASE_URL, DATABASE_TYPE, USER_KEY_SALT, LOG_LEVEL
	BOOTSTRAP_ADMIN_ID, BOOTSTRAP_ADMIN_EMAIL
	TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID, TELEGRAM_API_ENDPOINT
	VOTE_THRESHOLD, POLL_INTERVAL, DRIVER_RESPONSE_WINDOW, VOTE_COOLDOWN, VOTE_TTL

Durations use Go syntax ("90s", "10m").

# Validation

ParseFlags returns an error if:

  - DATABASE_URL is missing
  - DATABASE_TYPE is not sqlite or postgres
  - USER_KEY_SALT is missing
  - the threshold or poll interval is not positive
  - TELEGRAM_BOT_TOKEN is set without TELEGRAM_CHAT_ID
*/
package cliparse
