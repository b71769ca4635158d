// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"

	"github.com/campusbus/extrabus/alerts"
	"github.com/campusbus/extrabus/cliparse"
	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/complaints"
	"github.com/campusbus/extrabus/decisions"
	"github.com/campusbus/extrabus/fleet"
	"github.com/campusbus/extrabus/ledger"
	"github.com/campusbus/extrabus/notify"
	"github.com/campusbus/extrabus/poller"
	"github.com/campusbus/extrabus/profiles"
	"github.com/campusbus/extrabus/threshold"
	"github.com/campusbus/extrabus/topics"
)

// Services holds the workflow components shared by the handlers and the
// background poller.
type Services struct {
	Profiles   *profiles.Store
	Topics     *topics.Store
	Ledger     *ledger.Ledger
	Evaluator  *threshold.Evaluator
	Decisions  *decisions.Service
	Notifier   *notify.Notifier
	Poller     *poller.Poller
	Fleet      *fleet.Store
	Alerts     *alerts.Store
	Complaints *complaints.Store
}

// NewServices builds every component from cfg. A nil clock uses the system
// clock; a nil messenger disables outbound messages.
func NewServices(conn *sql.DB, cfg cliparse.Config, c clock.Clock, m notify.Messenger, retry notify.Retry, logger *slog.Logger) *Services {
	c = clock.Resolve(c)
	if logger == nil {
		logger = slog.Default()
	}

	n := notify.New(conn, c, m, retry, logger.With("component", "notify"))
	ps := profiles.NewStore(conn, c)
	ts := topics.NewStore(conn, c)
	l := ledger.New(conn, c, ledger.Windows{Cooldown: cfg.VoteCooldown, TTL: cfg.VoteTTL}, logger.With("component", "ledger"))
	eval := threshold.New(conn, ts, ps, n, c, threshold.Config{
		Threshold:      cfg.VoteThreshold,
		ResponseWindow: cfg.ResponseWindow,
		VoteTTL:        cfg.VoteTTL,
	}, logger.With("component", "threshold"))
	d := decisions.New(conn, ts, ps, eval, l, n, c, logger.With("component", "decisions"))
	p := poller.New(l, ts, eval, d, topics.NewCache(c, topics.DefaultCacheTTL), c,
		poller.Config{Interval: cfg.PollInterval}, logger.With("component", "poller"))

	return &Services{
		Profiles:   ps,
		Topics:     ts,
		Ledger:     l,
		Evaluator:  eval,
		Decisions:  d,
		Notifier:   n,
		Poller:     p,
		Fleet:      fleet.NewStore(conn, c),
		Alerts:     alerts.NewStore(conn, c),
		Complaints: complaints.NewStore(conn, c, n, logger.With("component", "complaints")),
	}
}
