// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/db"
	"github.com/campusbus/extrabus/models"
)

var (
	ErrTopicNotFound  = errors.New("topic not found")
	ErrVotingClosed   = errors.New("voting period has ended")
	ErrTopicNotActive = errors.New("topic is not accepting votes")
	ErrInvalidOption  = errors.New("option does not belong to topic")
	ErrVoteCooldown   = errors.New("student voted too recently")
	ErrDuplicateVote  = errors.New("student already voted on this topic")
)

// Windows holds the ledger's time limits.
type Windows struct {
	// Cooldown is the minimum gap between two votes by one student.
	Cooldown time.Duration
	// TTL is how long a vote counts before the sweep deletes it. Zero keeps
	// votes forever.
	TTL time.Duration
}

func DefaultWindows() Windows {
	return Windows{Cooldown: 30 * time.Minute, TTL: time.Hour}
}

type Ledger struct {
	db      *sql.DB
	clock   clock.Clock
	windows Windows
	logger  *slog.Logger
}

func New(conn *sql.DB, c clock.Clock, w Windows, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{db: conn, clock: clock.Resolve(c), windows: w, logger: logger}
}

// CastVote records one vote by studentID for optionID on topicID.
func (l *Ledger) CastVote(ctx context.Context, topicID, studentID, optionID string) (models.Vote, error) {
	now := l.clock.Now()

	var status string
	var endDate int64
	err := l.db.QueryRowContext(ctx, `
		SELECT status, end_date FROM voting_topics WHERE id = $1
	`, topicID).Scan(&status, &endDate)
	if err == sql.ErrNoRows {
		return models.Vote{}, ErrTopicNotFound
	}
	if err != nil {
		return models.Vote{}, fmt.Errorf("query topic: %w", err)
	}

	if !now.Before(db.FromMillis(endDate)) {
		return models.Vote{}, ErrVotingClosed
	}
	if status != models.StatusActive {
		return models.Vote{}, ErrTopicNotActive
	}

	var optionCount int
	err = l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM voting_options WHERE id = $1 AND topic_id = $2
	`, optionID, topicID).Scan(&optionCount)
	if err != nil {
		return models.Vote{}, fmt.Errorf("query option: %w", err)
	}
	if optionCount == 0 {
		return models.Vote{}, ErrInvalidOption
	}

	// A repeat vote on the same topic is left to the unique index
	var recent int
	err = l.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM votes
		WHERE student_id = $1 AND created_at > $2 AND topic_id <> $3
	`, studentID, db.ToMillis(now.Add(-l.windows.Cooldown)), topicID).Scan(&recent)
	if err != nil {
		return models.Vote{}, fmt.Errorf("query recent votes: %w", err)
	}
	if recent > 0 {
		return models.Vote{}, ErrVoteCooldown
	}

	vote := models.Vote{
		ID:        db.NewID(),
		TopicID:   topicID,
		StudentID: studentID,
		OptionID:  optionID,
		CreatedAt: now,
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO votes (id, topic_id, student_id, option_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, vote.ID, vote.TopicID, vote.StudentID, vote.OptionID, db.ToMillis(vote.CreatedAt))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.Vote{}, ErrDuplicateVote
		}
		return models.Vote{}, fmt.Errorf("insert vote: %w", err)
	}

	l.logger.Info("vote cast", "topic_id", topicID, "student_id", studentID, "vote_id", vote.ID)
	return vote, nil
}

// SweepExpired deletes votes older than the TTL. It returns the sorted IDs
// of topics that lost votes and the number of deleted rows.
func (l *Ledger) SweepExpired(ctx context.Context) ([]string, int64, error) {
	if l.windows.TTL <= 0 {
		return nil, 0, nil
	}
	cutoff := db.ToMillis(l.clock.Now().Add(-l.windows.TTL))

	rows, err := l.db.QueryContext(ctx, `
		SELECT DISTINCT topic_id FROM votes WHERE created_at <= $1
	`, cutoff)
	if err != nil {
		return nil, 0, fmt.Errorf("query expired votes: %w", err)
	}
	var topicIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, 0, fmt.Errorf("scan expired vote: %w", err)
		}
		topicIDs = append(topicIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(topicIDs) == 0 {
		return nil, 0, nil
	}

	res, err := l.db.ExecContext(ctx, `DELETE FROM votes WHERE created_at <= $1`, cutoff)
	if err != nil {
		return nil, 0, fmt.Errorf("delete expired votes: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return nil, 0, err
	}

	sort.Strings(topicIDs)
	l.logger.Info("expired votes swept", "deleted", deleted, "topics", len(topicIDs))
	return topicIDs, deleted, nil
}

// Voters returns the IDs of students holding a vote on topicID.
func (l *Ledger) Voters(ctx context.Context, topicID string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT student_id FROM votes WHERE topic_id = $1 ORDER BY created_at, student_id
	`, topicID)
	if err != nil {
		return nil, fmt.Errorf("query voters: %w", err)
	}
	defer rows.Close()

	voters := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan voter: %w", err)
		}
		voters = append(voters, id)
	}
	return voters, rows.Err()
}
