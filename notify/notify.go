// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/db"
	"github.com/campusbus/extrabus/models"
)

var ErrNotFound = errors.New("notification not found")

// Message is one notification sent to a set of users.
type Message struct {
	Title string
	Body  string
	Meta  models.NotificationMetadata
	// Key scopes deduplication. The same Key sent to the same user twice
	// stores one row.
	Key string
}

// Retry controls outbound delivery attempts.
type Retry struct {
	Attempts uint
	Delay    time.Duration
	// Budget caps the time one Broadcast may take across all attempts and
	// delays. Zero leaves it to the caller's context.
	Budget time.Duration
}

func DefaultRetry() Retry {
	return Retry{Attempts: 3, Delay: 2 * time.Second, Budget: 8 * time.Second}
}

type Notifier struct {
	db        *sql.DB
	clock     clock.Clock
	messenger Messenger
	retry     Retry
	logger    *slog.Logger
}

// New builds a Notifier. A nil messenger disables outbound delivery.
func New(conn *sql.DB, c clock.Clock, m Messenger, r Retry, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = NopMessenger{}
	}
	if r.Attempts == 0 {
		r.Attempts = 1
	}
	return &Notifier{db: conn, clock: clock.Resolve(c), messenger: m, retry: r, logger: logger}
}

// Notify stores one notification row per user and returns how many rows
// were new. A failed insert is logged and the fan-out moves on.
func (n *Notifier) Notify(ctx context.Context, userIDs []string, msg Message) int {
	meta, err := json.Marshal(msg.Meta)
	if err != nil {
		n.logger.Error("failed to encode notification metadata", "error", err, "key", msg.Key)
		return 0
	}
	now := db.ToMillis(n.clock.Now())

	created := 0
	seen := make(map[string]bool, len(userIDs))
	for _, userID := range userIDs {
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true

		res, err := n.db.ExecContext(ctx, `
			INSERT INTO notifications (id, user_id, title, message, metadata, is_read, dedupe_key, created_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)
			ON CONFLICT (dedupe_key) DO NOTHING
		`, db.NewID(), userID, msg.Title, msg.Body, string(meta), dedupeKey(msg, userID), now)
		if err != nil {
			n.logger.Warn("failed to insert notification", "error", err, "user_id", userID, "key", msg.Key)
			continue
		}
		if rows, _ := res.RowsAffected(); rows > 0 {
			created++
		}
	}

	if created > 0 {
		n.logger.Info("notifications sent",
			"action", msg.Meta.ActionType,
			"topic_id", msg.Meta.TopicID,
			"count", created)
	}
	return created
}

func dedupeKey(msg Message, userID string) string {
	if msg.Key == "" {
		// unkeyed messages never collide
		return db.NewID()
	}
	return msg.Key + "/" + userID
}

// Broadcast delivers text through the messenger, retrying a fixed number of
// times with a fixed delay, and gives up once the retry budget is spent.
// It reports whether delivery succeeded and never returns an error; failures
// are logged.
func (n *Notifier) Broadcast(ctx context.Context, text string) bool {
	if n.retry.Budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.retry.Budget)
		defer cancel()
	}
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := n.messenger.Send(ctx, text); err != nil {
			n.logger.Warn("outbound message attempt failed", "attempt", attempt, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(n.retry.Delay)),
		backoff.WithMaxTries(n.retry.Attempts),
	)
	if err != nil {
		n.logger.Error("outbound message failed", "attempts", attempt, "error", err)
		return false
	}
	return true
}

// FormatBroadcast renders a title and body for an HTML parse-mode message.
func FormatBroadcast(title, body string) string {
	return "<b>" + tgbotapi.EscapeText(tgbotapi.ModeHTML, title) + "</b>\n" + tgbotapi.EscapeText(tgbotapi.ModeHTML, body)
}

// Inbox lists a user's notifications, newest first.
func (n *Notifier) Inbox(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	query := `
		SELECT id, user_id, title, message, metadata, is_read, created_at
		FROM notifications WHERE user_id = $1`
	if unreadOnly {
		query += ` AND is_read = FALSE`
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := n.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	list := []models.Notification{}
	for rows.Next() {
		var item models.Notification
		var meta string
		var created int64
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.Message, &meta, &item.IsRead, &created); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &item.Metadata); err != nil {
			n.logger.Warn("bad notification metadata", "id", item.ID, "error", err)
		}
		item.CreatedAt = db.FromMillis(created)
		list = append(list, item)
	}
	return list, rows.Err()
}

// MarkRead marks one of userID's notifications read.
func (n *Notifier) MarkRead(ctx context.Context, userID, notificationID string) error {
	res, err := n.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}
