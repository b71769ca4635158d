// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/testutil"
)

type failingMessenger struct {
	calls    atomic.Int32
	failures int32
}

func (m *failingMessenger) Send(context.Context, string) error {
	n := m.calls.Add(1)
	if n <= m.failures {
		return errors.New("webhook unavailable")
	}
	return nil
}

func fastRetry() Retry {
	return Retry{Attempts: 3, Delay: time.Millisecond}
}

// hangingMessenger never answers; it returns only when ctx is done.
type hangingMessenger struct {
	calls atomic.Int32
}

func (m *hangingMessenger) Send(ctx context.Context, _ string) error {
	m.calls.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestNotifyDedupe(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	n := New(conn, clock.NewFake(testutil.Epoch), nil, fastRetry(), nil)
	ctx := context.Background()

	a := testutil.CreateTestProfile(t, conn, models.RoleDriver, "north")
	b := testutil.CreateTestProfile(t, conn, models.RoleDriver, "north")

	msg := Message{
		Title: "New extra bus request",
		Body:  "Please respond",
		Meta:  models.NotificationMetadata{TopicID: "t1", ActionType: models.ActionDriverRequested},
		Key:   "topic/t1/v2/driver_requested",
	}

	if got := n.Notify(ctx, []string{a.ID, b.ID, a.ID}, msg); got != 2 {
		t.Errorf("First Notify() = %d, want 2", got)
	}
	if got := n.Notify(ctx, []string{a.ID, b.ID}, msg); got != 0 {
		t.Errorf("Repeated Notify() = %d, want 0", got)
	}

	total := testutil.CountRows(t, conn, `SELECT COUNT(*) FROM notifications`)
	if total != 2 {
		t.Errorf("Expected 2 notification rows, got %d", total)
	}
}

func TestNotifyContinuesAfterFailure(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	n := New(conn, clock.NewFake(testutil.Epoch), nil, fastRetry(), nil)
	good := testutil.CreateTestProfile(t, conn, models.RoleCoordinator, "")

	// unknown user violates the profiles foreign key
	got := n.Notify(context.Background(), []string{"no-such-user", good.ID}, Message{
		Title: "Escalated",
		Body:  "Needs a coordinator",
		Meta:  models.NotificationMetadata{ActionType: models.ActionEscalated},
		Key:   "escalation",
	})
	if got != 1 {
		t.Errorf("Notify() = %d, want 1", got)
	}
}

func TestInboxAndMarkRead(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	clk := clock.NewFake(testutil.Epoch)
	n := New(conn, clk, nil, fastRetry(), nil)
	ctx := context.Background()

	user := testutil.CreateTestProfile(t, conn, models.RoleStudent, "north")
	other := testutil.CreateTestProfile(t, conn, models.RoleStudent, "north")

	n.Notify(ctx, []string{user.ID}, Message{Title: "first", Meta: models.NotificationMetadata{TopicID: "t1", ActionType: models.ActionApproved}})
	clk.Advance(time.Minute)
	n.Notify(ctx, []string{user.ID}, Message{Title: "second", Meta: models.NotificationMetadata{ActionType: models.ActionRejected}})

	list, err := n.Inbox(ctx, user.ID, false)
	if err != nil {
		t.Fatalf("Inbox() error = %v", err)
	}
	if len(list) != 2 || list[0].Title != "second" {
		t.Fatalf("Expected newest first, got %+v", list)
	}
	if list[1].Metadata.TopicID != "t1" || list[1].Metadata.ActionType != models.ActionApproved {
		t.Errorf("Metadata not decoded: %+v", list[1].Metadata)
	}

	if err := n.MarkRead(ctx, other.ID, list[0].ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkRead(other user) error = %v, want ErrNotFound", err)
	}
	if err := n.MarkRead(ctx, user.ID, list[0].ID); err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}

	unread, err := n.Inbox(ctx, user.ID, true)
	if err != nil {
		t.Fatalf("Inbox(unread) error = %v", err)
	}
	if len(unread) != 1 || unread[0].Title != "first" {
		t.Errorf("Expected only the first notification unread, got %+v", unread)
	}
}

func TestBroadcastRetries(t *testing.T) {
	tests := []struct {
		name      string
		failures  int32
		want      bool
		wantCalls int32
	}{
		{"first try", 0, true, 1},
		{"succeeds on third", 2, true, 3},
		{"gives up after three", 5, false, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &failingMessenger{failures: tt.failures}
			n := New(nil, nil, m, fastRetry(), nil)
			if got := n.Broadcast(context.Background(), "hello"); got != tt.want {
				t.Errorf("Broadcast() = %v, want %v", got, tt.want)
			}
			if m.calls.Load() != tt.wantCalls {
				t.Errorf("Expected %d attempts, got %d", tt.wantCalls, m.calls.Load())
			}
		})
	}
}

func TestBroadcastBudget(t *testing.T) {
	m := &hangingMessenger{}
	n := New(nil, nil, m, Retry{Attempts: 3, Delay: time.Millisecond, Budget: 50 * time.Millisecond}, nil)

	start := time.Now()
	if n.Broadcast(context.Background(), "hello") {
		t.Error("Broadcast() = true, want false")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Broadcast took %v, expected it to stop near the 50ms budget", elapsed)
	}
	if m.calls.Load() < 1 {
		t.Error("Expected at least one attempt")
	}
}

func TestFormatBroadcast(t *testing.T) {
	got := FormatBroadcast("Bus <North>", "A & B")
	want := "<b>Bus &lt;North&gt;</b>\nA &amp; B"
	if got != want {
		t.Errorf("FormatBroadcast() = %q, want %q", got, want)
	}
}

// fakeTelegram serves getMe and sendMessage like the Bot API.
type fakeTelegram struct {
	mu       sync.Mutex
	sent     []map[string]string
	failSend bool
	// stall holds sendMessage until closed
	stall chan struct{}
}

func (f *fakeTelegram) handler(token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/bot"+token+"/getMe", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"result":{"id":42,"is_bot":true,"first_name":"Extra Bus","username":"extrabus_bot"}}`)
	})
	mux.HandleFunc("/bot"+token+"/sendMessage", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.sent = append(f.sent, map[string]string{
			"chat_id":    r.PostForm.Get("chat_id"),
			"text":       r.PostForm.Get("text"),
			"parse_mode": r.PostForm.Get("parse_mode"),
		})
		fail := f.failSend
		stall := f.stall
		f.mu.Unlock()

		if stall != nil {
			<-stall
		}

		if fail {
			fmt.Fprint(w, `{"ok":false,"error_code":500,"description":"Internal Server Error"}`)
			return
		}
		fmt.Fprint(w, `{"ok":true,"result":{"message_id":7,"date":1756713600,"chat":{"id":-100123,"type":"group"}}}`)
	})
	return mux
}

func TestTelegramMessenger(t *testing.T) {
	const token = "123:test-token"
	fake := &fakeTelegram{}
	server := httptest.NewServer(fake.handler(token))
	defer server.Close()

	m, err := NewTelegramMessenger(token, server.URL+"/bot%s/%s", -100123, server.Client())
	if err != nil {
		t.Fatalf("NewTelegramMessenger() error = %v", err)
	}

	n := New(nil, nil, m, fastRetry(), nil)
	if !n.Broadcast(context.Background(), FormatBroadcast("Escalation", "Topic needs a coordinator")) {
		t.Fatal("Broadcast() = false, want true")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.sent) != 1 {
		t.Fatalf("Expected 1 sendMessage call, got %d", len(fake.sent))
	}
	got := fake.sent[0]
	if got["chat_id"] != "-100123" || got["parse_mode"] != "HTML" {
		t.Errorf("Unexpected sendMessage params: %v", got)
	}
	if !strings.Contains(got["text"], "<b>Escalation</b>") {
		t.Errorf("Unexpected text: %q", got["text"])
	}
}

func TestTelegramMessengerFailure(t *testing.T) {
	const token = "123:test-token"
	fake := &fakeTelegram{failSend: true}
	server := httptest.NewServer(fake.handler(token))
	defer server.Close()

	m, err := NewTelegramMessenger(token, server.URL+"/bot%s/%s", 1, server.Client())
	if err != nil {
		t.Fatalf("NewTelegramMessenger() error = %v", err)
	}

	n := New(nil, nil, m, fastRetry(), nil)
	if n.Broadcast(context.Background(), "hello") {
		t.Error("Broadcast() = true, want false")
	}

	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.sent) != 3 {
		t.Errorf("Expected 3 attempts, got %d", len(fake.sent))
	}
}

func TestTelegramMessengerHonorsDeadline(t *testing.T) {
	const token = "123:test-token"
	fake := &fakeTelegram{stall: make(chan struct{})}
	server := httptest.NewServer(fake.handler(token))
	defer server.Close()
	defer close(fake.stall)

	m, err := NewTelegramMessenger(token, server.URL+"/bot%s/%s", 1, server.Client())
	if err != nil {
		t.Fatalf("NewTelegramMessenger() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	err = m.Send(ctx, "hello")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send() error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Send took %v after its deadline", elapsed)
	}
}

func TestNewTelegramMessengerRequiresToken(t *testing.T) {
	if _, err := NewTelegramMessenger("", "", 1, nil); err == nil {
		t.Error("Expected error for empty token")
	}
}
