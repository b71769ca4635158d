// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package topics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/db"
	"github.com/campusbus/extrabus/models"
)

var (
	ErrNotFound          = errors.New("topic not found")
	ErrInvalidTopic      = errors.New("invalid topic")
	ErrInvalidTransition = errors.New("invalid topic status transition")
	ErrStaleTopic        = errors.New("topic was changed concurrently")
)

// DefaultVotingPeriod applies when a request omits its end date.
const DefaultVotingPeriod = 24 * time.Hour

// DefaultOptionLabel is used for requests created without options.
const DefaultOptionLabel = "I need this bus"

type CreateInput struct {
	Title       string
	Description string
	RequesterID string
	Region      string
	RouteID     *string
	ScheduleID  *string
	BusID       *string
	EndDate     time.Time
	Options     []string
}

// Change carries the optional columns a transition sets.
type Change struct {
	AssignedDriverID *string
	RejectionReason  *string
}

type Store struct {
	db    *sql.DB
	clock clock.Clock
}

func NewStore(conn *sql.DB, c clock.Clock) *Store {
	return &Store{db: conn, clock: clock.Resolve(c)}
}

// Create inserts an active topic and its options in one transaction.
func (s *Store) Create(ctx context.Context, in CreateInput) (models.TopicWithOptions, error) {
	now := s.clock.Now()
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" || in.RequesterID == "" {
		return models.TopicWithOptions{}, ErrInvalidTopic
	}
	if in.EndDate.IsZero() {
		in.EndDate = now.Add(DefaultVotingPeriod)
	}
	if !in.EndDate.After(now) {
		return models.TopicWithOptions{}, fmt.Errorf("%w: end date must be in the future", ErrInvalidTopic)
	}

	labels := make([]string, 0, len(in.Options))
	for _, label := range in.Options {
		if label = strings.TrimSpace(label); label != "" {
			labels = append(labels, label)
		}
	}
	if len(labels) == 0 {
		labels = []string{DefaultOptionLabel}
	}

	topic := models.VotingTopic{
		ID:          db.NewID(),
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		RequesterID: in.RequesterID,
		Region:      in.Region,
		RouteID:     in.RouteID,
		ScheduleID:  in.ScheduleID,
		BusID:       in.BusID,
		Status:      models.StatusActive,
		Version:     1,
		StartDate:   now,
		EndDate:     in.EndDate.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.TopicWithOptions{}, fmt.Errorf("begin topic insert: %w", err)
	}
	defer tx.Rollback()

	if err := checkReferences(ctx, tx, in); err != nil {
		return models.TopicWithOptions{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO voting_topics (id, title, description, requester_id, region, route_id,
		                           schedule_id, bus_id, status, weighted_votes, version,
		                           start_date, end_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, $10, $11, $12, $13, $14)
	`, topic.ID, topic.Title, topic.Description, topic.RequesterID, topic.Region, topic.RouteID,
		topic.ScheduleID, topic.BusID, topic.Status, topic.Version,
		db.ToMillis(topic.StartDate), db.ToMillis(topic.EndDate), db.ToMillis(now), db.ToMillis(now))
	if err != nil {
		return models.TopicWithOptions{}, fmt.Errorf("insert topic: %w", err)
	}

	options := make([]models.VotingOption, 0, len(labels))
	for _, label := range labels {
		opt := models.VotingOption{ID: db.NewID(), TopicID: topic.ID, Label: label}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO voting_options (id, topic_id, label) VALUES ($1, $2, $3)
		`, opt.ID, opt.TopicID, opt.Label)
		if err != nil {
			return models.TopicWithOptions{}, fmt.Errorf("insert option: %w", err)
		}
		options = append(options, opt)
	}

	if err := tx.Commit(); err != nil {
		return models.TopicWithOptions{}, fmt.Errorf("commit topic insert: %w", err)
	}
	return models.TopicWithOptions{Topic: topic, Options: options}, nil
}

// checkReferences rejects a route, schedule or bus id that does not exist.
func checkReferences(ctx context.Context, tx *sql.Tx, in CreateInput) error {
	refs := []struct {
		field string
		query string
		id    *string
	}{
		{"route_id", `SELECT COUNT(*) FROM routes WHERE id = $1`, in.RouteID},
		{"schedule_id", `SELECT COUNT(*) FROM schedules WHERE id = $1`, in.ScheduleID},
		{"bus_id", `SELECT COUNT(*) FROM buses WHERE id = $1`, in.BusID},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		var n int
		if err := tx.QueryRowContext(ctx, ref.query, *ref.id).Scan(&n); err != nil {
			return fmt.Errorf("check %s: %w", ref.field, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: unknown %s", ErrInvalidTopic, ref.field)
		}
	}
	return nil
}

const topicColumns = `id, title, description, requester_id, region, route_id, schedule_id, bus_id,
	status, weighted_votes, assigned_driver_id, rejection_reason, version,
	start_date, end_date, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTopic(row rowScanner) (models.VotingTopic, error) {
	var t models.VotingTopic
	var routeID, scheduleID, busID, driverID, reason sql.NullString
	var start, end, created, updated int64
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.RequesterID, &t.Region,
		&routeID, &scheduleID, &busID, &t.Status, &t.WeightedVotes, &driverID, &reason,
		&t.Version, &start, &end, &created, &updated)
	if err != nil {
		return models.VotingTopic{}, err
	}
	t.RouteID = db.FromNullString(routeID)
	t.ScheduleID = db.FromNullString(scheduleID)
	t.BusID = db.FromNullString(busID)
	t.AssignedDriverID = db.FromNullString(driverID)
	t.RejectionReason = db.FromNullString(reason)
	t.StartDate = db.FromMillis(start)
	t.EndDate = db.FromMillis(end)
	t.CreatedAt = db.FromMillis(created)
	t.UpdatedAt = db.FromMillis(updated)
	return t, nil
}

func (s *Store) Get(ctx context.Context, id string) (models.VotingTopic, error) {
	t, err := scanTopic(s.db.QueryRowContext(ctx, `SELECT `+topicColumns+` FROM voting_topics WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return models.VotingTopic{}, ErrNotFound
	}
	if err != nil {
		return models.VotingTopic{}, fmt.Errorf("query topic: %w", err)
	}
	return t, nil
}

// List returns topics with any of the given statuses, newest first.
// No statuses means every topic.
func (s *Store) List(ctx context.Context, statuses ...string) ([]models.VotingTopic, error) {
	query := `SELECT ` + topicColumns + ` FROM voting_topics`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + db.Placeholders(1, len(statuses)) + `)`
		for _, st := range statuses {
			args = append(args, st)
		}
	}
	query += ` ORDER BY created_at DESC, id`
	return s.query(ctx, query, args...)
}

// ListOverdue returns active topics whose end date is at or before now.
func (s *Store) ListOverdue(ctx context.Context, now time.Time) ([]models.VotingTopic, error) {
	return s.query(ctx, `SELECT `+topicColumns+` FROM voting_topics
		WHERE status = $1 AND end_date <= $2 ORDER BY end_date, id`,
		models.StatusActive, db.ToMillis(now))
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]models.VotingTopic, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	topics := []models.VotingTopic{}
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (s *Store) Options(ctx context.Context, topicID string) ([]models.VotingOption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, topic_id, label FROM voting_options WHERE topic_id = $1 ORDER BY id
	`, topicID)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	options := []models.VotingOption{}
	for rows.Next() {
		var opt models.VotingOption
		if err := rows.Scan(&opt.ID, &opt.TopicID, &opt.Label); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

// SetWeightedVotes stores a recomputed total. It does not bump the version.
func (s *Store) SetWeightedVotes(ctx context.Context, topicID string, total float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE voting_topics SET weighted_votes = $1 WHERE id = $2
	`, total, topicID)
	if err != nil {
		return fmt.Errorf("update weighted votes: %w", err)
	}
	return nil
}

// Transition moves t to status `to` if t is still at the status and version
// it was read with. Losing that race returns ErrStaleTopic and writes nothing.
func (s *Store) Transition(ctx context.Context, t models.VotingTopic, to string, ch Change) (models.VotingTopic, error) {
	if !CanTransition(t.Status, to) {
		return models.VotingTopic{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, t.Status, to)
	}
	now := s.clock.Now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE voting_topics
		SET status = $1, version = version + 1, updated_at = $2,
		    assigned_driver_id = COALESCE($3, assigned_driver_id),
		    rejection_reason = COALESCE($4, rejection_reason)
		WHERE id = $5 AND status = $6 AND version = $7
	`, to, db.ToMillis(now), ch.AssignedDriverID, ch.RejectionReason, t.ID, t.Status, t.Version)
	if err != nil {
		return models.VotingTopic{}, fmt.Errorf("update topic status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.VotingTopic{}, err
	}
	if n == 0 {
		return models.VotingTopic{}, ErrStaleTopic
	}

	t.Status = to
	t.Version++
	t.UpdatedAt = now
	if ch.AssignedDriverID != nil {
		t.AssignedDriverID = ch.AssignedDriverID
	}
	if ch.RejectionReason != nil {
		t.RejectionReason = ch.RejectionReason
	}
	return t, nil
}
