// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package decisions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/db"
	"github.com/campusbus/extrabus/ledger"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/notify"
	"github.com/campusbus/extrabus/profiles"
	"github.com/campusbus/extrabus/threshold"
	"github.com/campusbus/extrabus/topics"
)

var (
	ErrNoWindow         = errors.New("topic has no open driver response window")
	ErrWindowExpired    = errors.New("driver response window has expired")
	ErrWrongRegion      = errors.New("driver is not in the topic's region")
	ErrAlreadyResponded = errors.New("driver already responded to this topic")
	ErrDriverRequired   = errors.New("driver is required")
	ErrNotDriver        = errors.New("profile is not a driver")
	ErrReasonRequired   = errors.New("rejection reason is required")
)

// ExpiredReason is recorded on topics whose voting period ended.
const ExpiredReason = "voting period ended before the threshold was reached"

type Service struct {
	db       *sql.DB
	topics   *topics.Store
	profiles *profiles.Store
	eval     *threshold.Evaluator
	ledger   *ledger.Ledger
	notifier *notify.Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

func New(conn *sql.DB, ts *topics.Store, ps *profiles.Store, eval *threshold.Evaluator, l *ledger.Ledger, n *notify.Notifier, c clock.Clock, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       conn,
		topics:   ts,
		profiles: ps,
		eval:     eval,
		ledger:   l,
		notifier: n,
		clock:    clock.Resolve(c),
		logger:   logger,
	}
}

// Accept assigns a processing topic to driver, who must be in the topic's
// region and answering inside the response window.
func (s *Service) Accept(ctx context.Context, topicID string, driver models.Profile) (models.VotingTopic, error) {
	topic, err := s.respondable(ctx, topicID, driver)
	if err != nil {
		return models.VotingTopic{}, err
	}
	if err := s.recordResponse(ctx, topic.ID, driver.ID, models.ResponseAccept); err != nil {
		return models.VotingTopic{}, err
	}

	assigned, err := s.topics.Transition(ctx, topic, models.StatusDriverAssigned, topics.Change{AssignedDriverID: &driver.ID})
	if err != nil {
		s.forgetResponse(ctx, topic.ID, driver.ID, models.ResponseAccept)
		return models.VotingTopic{}, err
	}
	s.resolveWindow(ctx, topic.ID, models.OutcomeAccepted)
	s.logger.Info("driver accepted topic", "topic_id", topic.ID, "driver_id", driver.ID)

	body := fmt.Sprintf("%s will drive the extra bus for %q.", driver.FullName, topic.Title)
	s.announce(ctx, assigned, models.ActionDriverAssigned, "Driver assigned to your extra bus", body)
	return assigned, nil
}

// Decline records driver's refusal. When every driver in the region has
// declined, the topic escalates to the coordinators.
func (s *Service) Decline(ctx context.Context, topicID string, driver models.Profile) (models.VotingTopic, error) {
	topic, err := s.respondable(ctx, topicID, driver)
	if err != nil {
		return models.VotingTopic{}, err
	}
	if err := s.recordResponse(ctx, topic.ID, driver.ID, models.ResponseDecline); err != nil {
		return models.VotingTopic{}, err
	}
	s.logger.Info("driver declined topic", "topic_id", topic.ID, "driver_id", driver.ID)

	var drivers, declined int
	err = s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM profiles WHERE role = $1 AND region = $2),
			(SELECT COUNT(*) FROM driver_responses WHERE topic_id = $3 AND response = $4)
	`, models.RoleDriver, topic.Region, topic.ID, models.ResponseDecline).Scan(&drivers, &declined)
	if err != nil {
		return models.VotingTopic{}, fmt.Errorf("count driver responses: %w", err)
	}
	if declined < drivers {
		return topic, nil
	}

	escalated, err := s.eval.Escalate(ctx, topic, "every driver in "+topic.Region+" declined")
	if errors.Is(err, topics.ErrStaleTopic) {
		return s.topics.Get(ctx, topic.ID)
	}
	return escalated, err
}

func (s *Service) respondable(ctx context.Context, topicID string, driver models.Profile) (models.VotingTopic, error) {
	topic, err := s.topics.Get(ctx, topicID)
	if err != nil {
		return models.VotingTopic{}, err
	}
	if topic.Status != models.StatusProcessing {
		return models.VotingTopic{}, fmt.Errorf("%w: topic is %s", topics.ErrInvalidTransition, topic.Status)
	}
	if driver.Region != topic.Region {
		return models.VotingTopic{}, ErrWrongRegion
	}

	window, err := s.eval.Windows().Get(ctx, topic.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.VotingTopic{}, ErrNoWindow
	}
	if err != nil {
		return models.VotingTopic{}, err
	}
	if window.ResolvedAt != nil {
		return models.VotingTopic{}, ErrNoWindow
	}
	if !s.clock.Now().Before(window.ExpiresAt) {
		return models.VotingTopic{}, ErrWindowExpired
	}
	return topic, nil
}

func (s *Service) recordResponse(ctx context.Context, topicID, driverID, response string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO driver_responses (topic_id, driver_id, response, created_at)
		VALUES ($1, $2, $3, $4)
	`, topicID, driverID, response, db.ToMillis(s.clock.Now()))
	if db.IsUniqueViolation(err) {
		return ErrAlreadyResponded
	}
	if err != nil {
		return fmt.Errorf("insert driver response: %w", err)
	}
	return nil
}

// forgetResponse removes a response whose topic change did not happen.
func (s *Service) forgetResponse(ctx context.Context, topicID, driverID, response string) {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM driver_responses WHERE topic_id = $1 AND driver_id = $2 AND response = $3
	`, topicID, driverID, response)
	if err != nil {
		s.logger.Warn("failed to remove driver response", "topic_id", topicID, "driver_id", driverID, "error", err)
	}
}

// Assign lets a coordinator pick the driver for a processing or escalated topic.
func (s *Service) Assign(ctx context.Context, topicID, driverID string) (models.VotingTopic, error) {
	if strings.TrimSpace(driverID) == "" {
		return models.VotingTopic{}, ErrDriverRequired
	}
	driver, err := s.profiles.Get(ctx, driverID)
	if errors.Is(err, profiles.ErrNotFound) {
		return models.VotingTopic{}, ErrNotDriver
	}
	if err != nil {
		return models.VotingTopic{}, err
	}
	if driver.Role != models.RoleDriver {
		return models.VotingTopic{}, ErrNotDriver
	}

	topic, err := s.topics.Get(ctx, topicID)
	if err != nil {
		return models.VotingTopic{}, err
	}
	assigned, err := s.topics.Transition(ctx, topic, models.StatusDriverAssigned, topics.Change{AssignedDriverID: &driver.ID})
	if err != nil {
		return models.VotingTopic{}, err
	}
	s.resolveWindow(ctx, topic.ID, models.OutcomeClosed)
	s.logger.Info("coordinator assigned driver", "topic_id", topic.ID, "driver_id", driver.ID)

	s.notifier.Notify(ctx, []string{driver.ID}, notify.Message{
		Title: "You have been assigned an extra bus",
		Body:  fmt.Sprintf("You are driving %q in %s.", topic.Title, topic.Region),
		Meta:  models.NotificationMetadata{TopicID: topic.ID, ActionType: models.ActionDriverAssigned},
		Key:   threshold.TransitionKey(assigned, models.ActionDriverAssigned) + "/driver",
	})
	body := fmt.Sprintf("%s will drive the extra bus for %q.", driver.FullName, topic.Title)
	s.announce(ctx, assigned, models.ActionDriverAssigned, "Driver assigned to your extra bus", body)
	return assigned, nil
}

// Approve records a coordinator's approval.
func (s *Service) Approve(ctx context.Context, topicID string) (models.VotingTopic, error) {
	topic, err := s.topics.Get(ctx, topicID)
	if err != nil {
		return models.VotingTopic{}, err
	}
	approved, err := s.topics.Transition(ctx, topic, models.StatusApproved, topics.Change{})
	if err != nil {
		return models.VotingTopic{}, err
	}
	s.resolveWindow(ctx, topic.ID, models.OutcomeClosed)
	s.logger.Info("topic approved", "topic_id", topic.ID)

	body := fmt.Sprintf("The extra bus request %q was approved.", topic.Title)
	s.announce(ctx, approved, models.ActionApproved, "Extra bus approved", body)
	s.notifier.Broadcast(ctx, notify.FormatBroadcast("Extra bus approved", body))
	return approved, nil
}

// Reject records a coordinator's rejection. reason is required.
func (s *Service) Reject(ctx context.Context, topicID, reason string) (models.VotingTopic, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return models.VotingTopic{}, ErrReasonRequired
	}
	topic, err := s.topics.Get(ctx, topicID)
	if err != nil {
		return models.VotingTopic{}, err
	}
	return s.reject(ctx, topic, reason, models.ActionRejected)
}

// Expire rejects an active topic whose voting period ended.
func (s *Service) Expire(ctx context.Context, topic models.VotingTopic) (models.VotingTopic, error) {
	return s.reject(ctx, topic, ExpiredReason, models.ActionExpired)
}

func (s *Service) reject(ctx context.Context, topic models.VotingTopic, reason, action string) (models.VotingTopic, error) {
	rejected, err := s.topics.Transition(ctx, topic, models.StatusRejected, topics.Change{RejectionReason: &reason})
	if err != nil {
		return models.VotingTopic{}, err
	}
	s.resolveWindow(ctx, topic.ID, models.OutcomeClosed)
	s.logger.Info("topic rejected", "topic_id", topic.ID, "action", action, "reason", reason)

	title := "Extra bus request rejected"
	if action == models.ActionExpired {
		title = "Extra bus request expired"
	}
	body := fmt.Sprintf("The extra bus request %q was rejected: %s.", topic.Title, reason)
	s.announce(ctx, rejected, action, title, body)
	return rejected, nil
}

// Complete marks an assigned topic's bus as run.
func (s *Service) Complete(ctx context.Context, topicID string) (models.VotingTopic, error) {
	topic, err := s.topics.Get(ctx, topicID)
	if err != nil {
		return models.VotingTopic{}, err
	}
	completed, err := s.topics.Transition(ctx, topic, models.StatusCompleted, topics.Change{})
	if err != nil {
		return models.VotingTopic{}, err
	}
	s.logger.Info("topic completed", "topic_id", topic.ID)
	s.announce(ctx, completed, models.ActionCompleted, "Extra bus completed",
		fmt.Sprintf("The extra bus for %q has run.", topic.Title))
	return completed, nil
}

// announce notifies the requester and every current voter of topic.
func (s *Service) announce(ctx context.Context, topic models.VotingTopic, action, title, body string) {
	recipients := []string{topic.RequesterID}
	voters, err := s.ledger.Voters(ctx, topic.ID)
	if err != nil {
		s.logger.Warn("failed to load voters", "topic_id", topic.ID, "error", err)
	}
	recipients = append(recipients, voters...)

	s.notifier.Notify(ctx, recipients, notify.Message{
		Title: title,
		Body:  body,
		Meta:  models.NotificationMetadata{TopicID: topic.ID, ActionType: action},
		Key:   threshold.TransitionKey(topic, action),
	})
}

func (s *Service) resolveWindow(ctx context.Context, topicID, outcome string) {
	if _, err := s.eval.Windows().Resolve(ctx, topicID, outcome, s.clock.Now()); err != nil {
		s.logger.Warn("failed to resolve driver response window", "topic_id", topicID, "error", err)
	}
}
