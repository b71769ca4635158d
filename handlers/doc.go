// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the extrabus API.

# Handler Types

Each handler is a struct holding the workflow components it needs:

  - ProfileHandler: registration, admin profile creation, /me
  - TopicHandler: extra-bus requests and vote casting
  - DecisionHandler: driver accept/decline, coordinator decisions
  - NotificationHandler: the per-user inbox
  - FleetHandler: routes, stops, buses and schedules
  - AlertHandler, ComplaintHandler

All handlers are built from one Services value:

	svc := handlers.NewServices(conn, cfg, nil, messenger, notify.DefaultRetry(), logger)
	topicHandler := handlers.NewTopicHandler(svc)

The same Services value owns the poller, so the topic list cache is shared
between background ticks and GET /topics.

# Identity

Handlers expect middleware.RequireRole to have placed the caller's profile
in the request context. Role checks happen in the router.

# Errors

Domain errors map to status codes in errors.go: not found is 404, bad
input is 400, state conflicts are 409, the vote cooldown is 429 and a
driver outside the topic's region gets 403.
*/
package handlers
