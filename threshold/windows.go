// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package threshold

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/campusbus/extrabus/db"
	"github.com/campusbus/extrabus/models"
)

// Windows stores the driver response window opened for each topic.
type Windows struct {
	db *sql.DB
}

func NewWindows(conn *sql.DB) *Windows {
	return &Windows{db: conn}
}

// Open records a window for topic. A topic has at most one window; opening
// it again is a no-op that reports false.
func (w *Windows) Open(ctx context.Context, topic models.VotingTopic, expiresAt time.Time) (bool, error) {
	res, err := w.db.ExecContext(ctx, `
		INSERT INTO driver_response_pending (id, topic_id, region, title, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (topic_id) DO NOTHING
	`, db.NewID(), topic.ID, topic.Region, topic.Title, db.ToMillis(expiresAt))
	if err != nil {
		return false, fmt.Errorf("insert driver response window: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Resolve closes topicID's open window with outcome. Resolving an already
// resolved or missing window reports false.
func (w *Windows) Resolve(ctx context.Context, topicID, outcome string, at time.Time) (bool, error) {
	res, err := w.db.ExecContext(ctx, `
		UPDATE driver_response_pending SET resolved_at = $1, outcome = $2
		WHERE topic_id = $3 AND resolved_at IS NULL
	`, db.ToMillis(at), outcome, topicID)
	if err != nil {
		return false, fmt.Errorf("resolve driver response window: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// Get returns topicID's window, or sql.ErrNoRows.
func (w *Windows) Get(ctx context.Context, topicID string) (models.DriverResponsePending, error) {
	var p models.DriverResponsePending
	var expires int64
	var resolved sql.NullInt64
	var outcome sql.NullString
	err := w.db.QueryRowContext(ctx, `
		SELECT id, topic_id, region, title, expires_at, resolved_at, outcome
		FROM driver_response_pending WHERE topic_id = $1
	`, topicID).Scan(&p.ID, &p.TopicID, &p.Region, &p.Title, &expires, &resolved, &outcome)
	if err != nil {
		return models.DriverResponsePending{}, err
	}
	p.ExpiresAt = db.FromMillis(expires)
	p.ResolvedAt = db.FromNullMillis(resolved)
	p.Outcome = db.FromNullString(outcome)
	return p, nil
}

// Elapsed returns unresolved windows whose expiry is at or before now.
func (w *Windows) Elapsed(ctx context.Context, now time.Time) ([]models.DriverResponsePending, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT id, topic_id, region, title, expires_at
		FROM driver_response_pending
		WHERE resolved_at IS NULL AND expires_at <= $1
		ORDER BY expires_at, topic_id
	`, db.ToMillis(now))
	if err != nil {
		return nil, fmt.Errorf("query elapsed windows: %w", err)
	}
	defer rows.Close()

	windows := []models.DriverResponsePending{}
	for rows.Next() {
		var p models.DriverResponsePending
		var expires int64
		if err := rows.Scan(&p.ID, &p.TopicID, &p.Region, &p.Title, &expires); err != nil {
			return nil, fmt.Errorf("scan window: %w", err)
		}
		p.ExpiresAt = db.FromMillis(expires)
		windows = append(windows, p)
	}
	return windows, rows.Err()
}
