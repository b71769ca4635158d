// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package threshold

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/db"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/notify"
	"github.com/campusbus/extrabus/profiles"
	"github.com/campusbus/extrabus/topics"
)

// Vote weights relative to the topic's region.
const (
	SameRegionWeight  = 1.0
	OtherRegionWeight = 0.5
)

// Outcome describes what an evaluation did.
type Outcome string

const (
	OutcomeNotActive       Outcome = "not_active"
	OutcomeClosed          Outcome = "closed"
	OutcomeBelowThreshold  Outcome = "below_threshold"
	OutcomeStale           Outcome = "stale"
	OutcomeDriversNotified Outcome = "drivers_notified"
	OutcomeEscalated       Outcome = "escalated"
)

type Config struct {
	// Threshold is the weighted total that moves a topic to processing.
	Threshold float64
	// ResponseWindow is how long notified drivers have to accept.
	ResponseWindow time.Duration
	// VoteTTL excludes votes at least this old from totals. Zero counts all.
	VoteTTL time.Duration
}

func DefaultConfig() Config {
	return Config{Threshold: 25, ResponseWindow: 10 * time.Minute, VoteTTL: time.Hour}
}

type Evaluator struct {
	db       *sql.DB
	topics   *topics.Store
	profiles *profiles.Store
	windows  *Windows
	notifier *notify.Notifier
	clock    clock.Clock
	cfg      Config
	logger   *slog.Logger
}

func New(conn *sql.DB, ts *topics.Store, ps *profiles.Store, n *notify.Notifier, c clock.Clock, cfg Config, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		db:       conn,
		topics:   ts,
		profiles: ps,
		windows:  NewWindows(conn),
		notifier: n,
		clock:    clock.Resolve(c),
		cfg:      cfg,
		logger:   logger,
	}
}

// Windows returns the driver response window store.
func (e *Evaluator) Windows() *Windows {
	return e.windows
}

// WeightedTotal sums the topic's live votes: voters in the topic's region
// count SameRegionWeight, everyone else OtherRegionWeight.
func (e *Evaluator) WeightedTotal(ctx context.Context, topic models.VotingTopic) (float64, error) {
	cutoff := int64(0)
	if e.cfg.VoteTTL > 0 {
		cutoff = db.ToMillis(e.clock.Now().Add(-e.cfg.VoteTTL))
	}

	var total float64
	err := e.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN p.region = $1 THEN 1.0 ELSE 0.5 END), 0)
		FROM votes v
		JOIN profiles p ON p.id = v.student_id
		WHERE v.topic_id = $2 AND v.created_at > $3
	`, topic.Region, topic.ID, cutoff).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum weighted votes: %w", err)
	}
	return total, nil
}

// Recount recomputes and stores topicID's weighted total.
func (e *Evaluator) Recount(ctx context.Context, topicID string) (float64, error) {
	topic, err := e.topics.Get(ctx, topicID)
	if err != nil {
		return 0, err
	}
	return e.recount(ctx, topic)
}

func (e *Evaluator) recount(ctx context.Context, topic models.VotingTopic) (float64, error) {
	total, err := e.WeightedTotal(ctx, topic)
	if err != nil {
		return 0, err
	}
	if total != topic.WeightedVotes {
		if err := e.topics.SetWeightedVotes(ctx, topic.ID, total); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// Evaluate recounts an active topic and, when it reaches the threshold,
// moves it to processing and either requests regional drivers or escalates.
// Concurrent evaluations of one topic converge: exactly one wins the
// transition and the others report OutcomeStale.
func (e *Evaluator) Evaluate(ctx context.Context, topicID string) (Outcome, error) {
	topic, err := e.topics.Get(ctx, topicID)
	if err != nil {
		return "", err
	}
	if topic.Status != models.StatusActive {
		return OutcomeNotActive, nil
	}
	now := e.clock.Now()
	if !now.Before(topic.EndDate) {
		return OutcomeClosed, nil
	}

	total, err := e.recount(ctx, topic)
	if err != nil {
		return "", err
	}
	if total < e.cfg.Threshold {
		return OutcomeBelowThreshold, nil
	}

	processing, err := e.topics.Transition(ctx, topic, models.StatusProcessing, topics.Change{})
	if errors.Is(err, topics.ErrStaleTopic) {
		return OutcomeStale, nil
	}
	if err != nil {
		return "", err
	}
	processing.WeightedVotes = total
	e.logger.Info("topic reached threshold", "topic_id", topic.ID, "weighted_votes", total, "threshold", e.cfg.Threshold)

	e.notifier.Notify(ctx, []string{topic.RequesterID}, notify.Message{
		Title: "Your extra bus request reached the vote threshold",
		Body:  fmt.Sprintf("%q has %.1f weighted votes. We are looking for a driver.", topic.Title, total),
		Meta:  models.NotificationMetadata{TopicID: topic.ID, ActionType: models.ActionThresholdReached},
		Key:   TransitionKey(processing, models.ActionThresholdReached),
	})

	return e.requestDrivers(ctx, processing, now)
}

// Resume finishes the driver request of a processing topic that has no
// response window, as left behind when Evaluate failed after the move to
// processing. It reports false when the topic already has a window or is
// no longer processing.
func (e *Evaluator) Resume(ctx context.Context, topic models.VotingTopic) (bool, error) {
	if topic.Status != models.StatusProcessing {
		return false, nil
	}
	_, err := e.windows.Get(ctx, topic.ID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	e.logger.Info("resuming driver request", "topic_id", topic.ID)
	if _, err := e.requestDrivers(ctx, topic, e.clock.Now()); err != nil {
		return false, err
	}
	return true, nil
}

// requestDrivers opens the response window of a processing topic and
// notifies its regional drivers, or escalates when the region has none.
func (e *Evaluator) requestDrivers(ctx context.Context, topic models.VotingTopic, now time.Time) (Outcome, error) {
	drivers, err := e.profiles.ByRoleInRegion(ctx, models.RoleDriver, topic.Region)
	if err != nil {
		return "", err
	}
	if len(drivers) == 0 {
		if _, err := e.Escalate(ctx, topic, "no drivers in region "+topic.Region); err != nil {
			return "", err
		}
		return OutcomeEscalated, nil
	}

	expiresAt := now.Add(e.cfg.ResponseWindow)
	if _, err := e.windows.Open(ctx, topic, expiresAt); err != nil {
		return "", err
	}

	ids := make([]string, 0, len(drivers))
	for _, d := range drivers {
		ids = append(ids, d.ID)
	}
	body := fmt.Sprintf("%q in %s needs a driver. Respond %s.",
		topic.Title, topic.Region, humanize.RelTime(expiresAt, now, "ago", "from now"))
	e.notifier.Notify(ctx, ids, notify.Message{
		Title: "Extra bus driver needed",
		Body:  body,
		Meta:  models.NotificationMetadata{TopicID: topic.ID, ActionType: models.ActionDriverRequested},
		Key:   TransitionKey(topic, models.ActionDriverRequested),
	})
	e.notifier.Broadcast(ctx, notify.FormatBroadcast("Extra bus driver needed", body))
	return OutcomeDriversNotified, nil
}

// Escalate hands a processing topic to the coordinators. A topic that has
// already moved on returns topics.ErrStaleTopic with nothing sent.
func (e *Evaluator) Escalate(ctx context.Context, topic models.VotingTopic, reason string) (models.VotingTopic, error) {
	escalated, err := e.topics.Transition(ctx, topic, models.StatusPendingCoordinator, topics.Change{})
	if err != nil {
		return models.VotingTopic{}, err
	}
	now := e.clock.Now()
	if _, err := e.windows.Resolve(ctx, topic.ID, models.OutcomeEscalated, now); err != nil {
		e.logger.Warn("failed to resolve driver response window", "topic_id", topic.ID, "error", err)
	}
	e.logger.Info("topic escalated to coordinators", "topic_id", topic.ID, "reason", reason)

	coordinators, err := e.profiles.IDsByRole(ctx, models.RoleCoordinator)
	if err != nil {
		return escalated, err
	}
	body := fmt.Sprintf("%q in %s needs a coordinator decision: %s.", topic.Title, topic.Region, reason)
	e.notifier.Notify(ctx, coordinators, notify.Message{
		Title: "Extra bus request escalated",
		Body:  body,
		Meta:  models.NotificationMetadata{TopicID: topic.ID, ActionType: models.ActionEscalated},
		Key:   TransitionKey(escalated, models.ActionEscalated),
	})
	e.notifier.Broadcast(ctx, notify.FormatBroadcast("Extra bus request escalated", body))
	return escalated, nil
}

// TransitionKey identifies the notifications for one topic version, so
// re-sending after the same transition stores nothing new.
func TransitionKey(t models.VotingTopic, action string) string {
	return fmt.Sprintf("topic/%s/v%d/%s", t.ID, t.Version, action)
}
