// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/campusbus/extrabus/auth"
	"github.com/campusbus/extrabus/cliparse"
	"github.com/campusbus/extrabus/db"
	"github.com/campusbus/extrabus/models"
)

// Epoch is the fixed start time used with clock.Fake in tests
var Epoch = time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)

var emailSeq atomic.Int64

// SetupTestDB creates a fresh SQLite database with the full schema.
// The database lives in the test's temp dir and is closed on cleanup.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	conn, err := db.Open(db.TypeSQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    "file:test.db",
		DatabaseType:   db.TypeSQLite,
		UserKeySalt:    "test-user-salt",
		VoteThreshold:  25,
		PollInterval:   time.Minute,
		ResponseWindow: 10 * time.Minute,
		VoteCooldown:   30 * time.Minute,
		VoteTTL:        time.Hour,
	}
}

// CreateTestProfile inserts a profile with the given role and region
func CreateTestProfile(t *testing.T, conn *sql.DB, role, region string) models.Profile {
	t.Helper()

	seq := emailSeq.Add(1)
	p := models.Profile{
		ID:        db.NewID(),
		FullName:  fmt.Sprintf("Test %s %d", role, seq),
		Email:     fmt.Sprintf("%s%d@campus.test", role, seq),
		Role:      role,
		Region:    region,
		CreatedAt: Epoch,
	}
	_, err := conn.Exec(`
		INSERT INTO profiles (id, full_name, email, role, region, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.FullName, p.Email, p.Role, p.Region, db.ToMillis(p.CreatedAt))
	if err != nil {
		t.Fatalf("Failed to create test profile: %v", err)
	}
	return p
}

// CreateTestTopic inserts a topic with one option and returns both IDs.
// status should be one of the models topic statuses.
func CreateTestTopic(t *testing.T, conn *sql.DB, requester models.Profile, status string, endDate time.Time) (topicID, optionID string) {
	t.Helper()

	topicID = db.NewID()
	optionID = db.NewID()
	_, err := conn.Exec(`
		INSERT INTO voting_topics (id, title, description, requester_id, region, status,
		                           version, start_date, end_date, created_at, updated_at)
		VALUES ($1, 'Extra evening bus', 'Library closes late', $2, $3, $4, 1, $5, $6, $7, $8)
	`, topicID, requester.ID, requester.Region, status,
		db.ToMillis(Epoch), db.ToMillis(endDate), db.ToMillis(Epoch), db.ToMillis(Epoch))
	if err != nil {
		t.Fatalf("Failed to create test topic: %v", err)
	}

	_, err = conn.Exec(`
		INSERT INTO voting_options (id, topic_id, label) VALUES ($1, $2, 'I need this bus')
	`, optionID, topicID)
	if err != nil {
		t.Fatalf("Failed to create test option: %v", err)
	}
	return topicID, optionID
}

// InsertTestVote inserts a vote row directly, bypassing ledger rules
func InsertTestVote(t *testing.T, conn *sql.DB, topicID, studentID, optionID string, createdAt time.Time) string {
	t.Helper()

	voteID := db.NewID()
	_, err := conn.Exec(`
		INSERT INTO votes (id, topic_id, student_id, option_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, voteID, topicID, studentID, optionID, db.ToMillis(createdAt))
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}
	return voteID
}

// TopicStatus reads a topic's status and version
func TopicStatus(t *testing.T, conn *sql.DB, topicID string) (string, int64) {
	t.Helper()

	var status string
	var version int64
	err := conn.QueryRow(`SELECT status, version FROM voting_topics WHERE id = $1`, topicID).Scan(&status, &version)
	if err != nil {
		t.Fatalf("Failed to read topic status: %v", err)
	}
	return status, version
}

// CountRows runs a COUNT(*) query and returns the result
func CountRows(t *testing.T, conn *sql.DB, query string, args ...any) int {
	t.Helper()

	var n int
	if err := conn.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Failed to count rows: %v", err)
	}
	return n
}

// AuthHeaders returns the identity headers for a profile
func AuthHeaders(cfg cliparse.Config, userID string) map[string]string {
	return map[string]string{
		"X-User-ID":  userID,
		"X-User-Key": auth.GenerateUserKey(userID, cfg.UserKeySalt),
	}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
