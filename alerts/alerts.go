// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package alerts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/db"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/profiles"
)

var ErrInvalidAlert = errors.New("invalid alert")

// Severity levels
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

type Store struct {
	db    *sql.DB
	clock clock.Clock
}

func NewStore(conn *sql.DB, c clock.Clock) *Store {
	return &Store{db: conn, clock: clock.Resolve(c)}
}

// Create publishes an alert to one role or to models.AlertAllRoles.
func (s *Store) Create(ctx context.Context, createdBy string, req models.CreateAlertRequest) (models.Alert, error) {
	a := models.Alert{
		ID:         db.NewID(),
		TargetRole: strings.ToLower(strings.TrimSpace(req.TargetRole)),
		Title:      strings.TrimSpace(req.Title),
		Message:    strings.TrimSpace(req.Message),
		Severity:   strings.ToLower(strings.TrimSpace(req.Severity)),
		CreatedBy:  createdBy,
		CreatedAt:  s.clock.Now(),
	}
	if a.TargetRole == "" {
		a.TargetRole = models.AlertAllRoles
	}
	if a.Severity == "" {
		a.Severity = SeverityInfo
	}
	if a.TargetRole != models.AlertAllRoles && !profiles.ValidRole(a.TargetRole) {
		return models.Alert{}, fmt.Errorf("%w: unknown target role %q", ErrInvalidAlert, a.TargetRole)
	}
	switch a.Severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
	default:
		return models.Alert{}, fmt.Errorf("%w: unknown severity %q", ErrInvalidAlert, a.Severity)
	}
	if a.Title == "" || a.Message == "" {
		return models.Alert{}, fmt.Errorf("%w: title and message are required", ErrInvalidAlert)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts (id, target_role, title, message, severity, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.TargetRole, a.Title, a.Message, a.Severity, a.CreatedBy, db.ToMillis(a.CreatedAt))
	if err != nil {
		return models.Alert{}, fmt.Errorf("insert alert: %w", err)
	}
	return a, nil
}

// ListFor returns the alerts visible to role, newest first. An empty role
// returns every alert.
func (s *Store) ListFor(ctx context.Context, role string) ([]models.Alert, error) {
	query := `SELECT id, target_role, title, message, severity, created_by, created_at FROM alerts`
	var args []any
	if role != "" {
		query += ` WHERE target_role = $1 OR target_role = $2`
		args = append(args, role, models.AlertAllRoles)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	list := []models.Alert{}
	for rows.Next() {
		var a models.Alert
		var created int64
		if err := rows.Scan(&a.ID, &a.TargetRole, &a.Title, &a.Message, &a.Severity, &a.CreatedBy, &created); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		a.CreatedAt = db.FromMillis(created)
		list = append(list, a)
	}
	return list, rows.Err()
}
