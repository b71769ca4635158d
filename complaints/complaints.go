// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package complaints

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/db"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/notify"
)

var (
	ErrNotFound         = errors.New("complaint not found")
	ErrInvalidComplaint = errors.New("invalid complaint")
	ErrResolved         = errors.New("complaint is already resolved")
)

type Store struct {
	db       *sql.DB
	clock    clock.Clock
	notifier *notify.Notifier
	logger   *slog.Logger
}

func NewStore(conn *sql.DB, c clock.Clock, n *notify.Notifier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: conn, clock: clock.Resolve(c), notifier: n, logger: logger}
}

// File opens a complaint for userID.
func (s *Store) File(ctx context.Context, userID string, req models.CreateComplaintRequest) (models.Complaint, error) {
	now := s.clock.Now()
	c := models.Complaint{
		ID:          db.NewID(),
		UserID:      userID,
		Subject:     strings.TrimSpace(req.Subject),
		Description: strings.TrimSpace(req.Description),
		Status:      models.ComplaintOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if c.Subject == "" || c.Description == "" {
		return models.Complaint{}, fmt.Errorf("%w: subject and description are required", ErrInvalidComplaint)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO complaints (id, user_id, subject, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.UserID, c.Subject, c.Description, c.Status, db.ToMillis(now), db.ToMillis(now))
	if err != nil {
		return models.Complaint{}, fmt.Errorf("insert complaint: %w", err)
	}
	s.logger.Info("complaint filed", "complaint_id", c.ID, "user_id", userID)
	return c, nil
}

// Get returns a complaint with its responses in order.
func (s *Store) Get(ctx context.Context, id string) (models.Complaint, error) {
	var c models.Complaint
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, subject, description, status, created_at, updated_at
		FROM complaints WHERE id = $1
	`, id).Scan(&c.ID, &c.UserID, &c.Subject, &c.Description, &c.Status, &created, &updated)
	if err == sql.ErrNoRows {
		return models.Complaint{}, ErrNotFound
	}
	if err != nil {
		return models.Complaint{}, fmt.Errorf("query complaint: %w", err)
	}
	c.CreatedAt = db.FromMillis(created)
	c.UpdatedAt = db.FromMillis(updated)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, complaint_id, responder_id, message, created_at
		FROM complaint_responses WHERE complaint_id = $1 ORDER BY created_at, id
	`, id)
	if err != nil {
		return models.Complaint{}, fmt.Errorf("query complaint responses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r models.ComplaintResponse
		var at int64
		if err := rows.Scan(&r.ID, &r.ComplaintID, &r.ResponderID, &r.Message, &at); err != nil {
			return models.Complaint{}, fmt.Errorf("scan complaint response: %w", err)
		}
		r.CreatedAt = db.FromMillis(at)
		c.Responses = append(c.Responses, r)
	}
	return c, rows.Err()
}

// List returns complaints newest first; an empty userID lists everyone's.
func (s *Store) List(ctx context.Context, userID string) ([]models.Complaint, error) {
	query := `SELECT id, user_id, subject, description, status, created_at, updated_at FROM complaints`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query complaints: %w", err)
	}
	defer rows.Close()

	list := []models.Complaint{}
	for rows.Next() {
		var c models.Complaint
		var created, updated int64
		if err := rows.Scan(&c.ID, &c.UserID, &c.Subject, &c.Description, &c.Status, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan complaint: %w", err)
		}
		c.CreatedAt = db.FromMillis(created)
		c.UpdatedAt = db.FromMillis(updated)
		list = append(list, c)
	}
	return list, rows.Err()
}

// Respond adds a staff reply, moves an open complaint to in_progress and
// notifies the complainant.
func (s *Store) Respond(ctx context.Context, complaintID, responderID, message string) (models.ComplaintResponse, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return models.ComplaintResponse{}, fmt.Errorf("%w: message is required", ErrInvalidComplaint)
	}
	c, err := s.Get(ctx, complaintID)
	if err != nil {
		return models.ComplaintResponse{}, err
	}
	if c.Status == models.ComplaintResolved {
		return models.ComplaintResponse{}, ErrResolved
	}

	now := s.clock.Now()
	r := models.ComplaintResponse{
		ID:          db.NewID(),
		ComplaintID: c.ID,
		ResponderID: responderID,
		Message:     message,
		CreatedAt:   now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.ComplaintResponse{}, fmt.Errorf("begin complaint response: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO complaint_responses (id, complaint_id, responder_id, message, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, r.ID, r.ComplaintID, r.ResponderID, r.Message, db.ToMillis(now)); err != nil {
		return models.ComplaintResponse{}, fmt.Errorf("insert complaint response: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE complaints SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4
	`, models.ComplaintInProgress, db.ToMillis(now), c.ID, models.ComplaintOpen); err != nil {
		return models.ComplaintResponse{}, fmt.Errorf("update complaint status: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return models.ComplaintResponse{}, fmt.Errorf("commit complaint response: %w", err)
	}

	s.notifier.Notify(ctx, []string{c.UserID}, notify.Message{
		Title: "Reply to your complaint",
		Body:  fmt.Sprintf("%q: %s", c.Subject, message),
		Meta:  models.NotificationMetadata{ComplaintID: c.ID, ActionType: models.ActionComplaintReply},
		Key:   "complaint/" + c.ID + "/response/" + r.ID,
	})
	return r, nil
}

// Resolve closes a complaint.
func (s *Store) Resolve(ctx context.Context, complaintID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE complaints SET status = $1, updated_at = $2 WHERE id = $3 AND status <> $1
	`, models.ComplaintResolved, db.ToMillis(s.clock.Now()), complaintID)
	if err != nil {
		return fmt.Errorf("resolve complaint: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := s.Get(ctx, complaintID); err != nil {
		return err
	}
	return ErrResolved
}
