// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package complaints

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/notify"
	"github.com/campusbus/extrabus/testutil"
)

func newTestStore(t *testing.T) (*Store, *clock.Fake) {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	clk := clock.NewFake(testutil.Epoch)
	n := notify.New(conn, clk, nil, notify.DefaultRetry(), nil)
	return NewStore(conn, clk, n, nil), clk
}

func TestFileAndList(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()
	alice := testutil.CreateTestProfile(t, s.db, models.RoleStudent, "north")
	bob := testutil.CreateTestProfile(t, s.db, models.RoleDriver, "north")

	if _, err := s.File(ctx, alice.ID, models.CreateComplaintRequest{Subject: " "}); !errors.Is(err, ErrInvalidComplaint) {
		t.Errorf("File(empty) error = %v, want ErrInvalidComplaint", err)
	}

	first, err := s.File(ctx, alice.ID, models.CreateComplaintRequest{Subject: "Late bus", Description: "Loop A was 20 min late"})
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}
	if first.Status != models.ComplaintOpen {
		t.Errorf("Status = %s, want open", first.Status)
	}
	clk.Advance(time.Minute)
	s.File(ctx, bob.ID, models.CreateComplaintRequest{Subject: "Broken seat", Description: "Bus SG 1"})

	own, err := s.List(ctx, alice.ID)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(own) != 1 || own[0].ID != first.ID {
		t.Errorf("Expected only alice's complaint, got %+v", own)
	}
	all, _ := s.List(ctx, "")
	if len(all) != 2 || all[0].UserID != bob.ID {
		t.Errorf("Expected newest first, got %+v", all)
	}
}

func TestRespondAndResolve(t *testing.T) {
	s, clk := newTestStore(t)
	ctx := context.Background()
	student := testutil.CreateTestProfile(t, s.db, models.RoleStudent, "north")
	staff := testutil.CreateTestProfile(t, s.db, models.RoleCoordinator, "")

	c, err := s.File(ctx, student.ID, models.CreateComplaintRequest{Subject: "Late bus", Description: "Again"})
	if err != nil {
		t.Fatalf("File() error = %v", err)
	}

	if _, err := s.Respond(ctx, c.ID, staff.ID, "  "); !errors.Is(err, ErrInvalidComplaint) {
		t.Errorf("Respond(empty) error = %v, want ErrInvalidComplaint", err)
	}
	if _, err := s.Respond(ctx, "missing", staff.ID, "hi"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Respond(unknown) error = %v, want ErrNotFound", err)
	}

	clk.Advance(time.Minute)
	if _, err := s.Respond(ctx, c.ID, staff.ID, "We spoke to the driver"); err != nil {
		t.Fatalf("Respond() error = %v", err)
	}
	got, err := s.Get(ctx, c.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != models.ComplaintInProgress || len(got.Responses) != 1 {
		t.Errorf("Unexpected complaint after response: %+v", got)
	}
	if !got.UpdatedAt.Equal(testutil.Epoch.Add(time.Minute)) {
		t.Errorf("UpdatedAt = %v", got.UpdatedAt)
	}

	n := testutil.CountRows(t, s.db, `SELECT COUNT(*) FROM notifications WHERE user_id = $1`, student.ID)
	if n != 1 {
		t.Errorf("Complainant got %d notifications, want 1", n)
	}

	if err := s.Resolve(ctx, c.ID); err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if err := s.Resolve(ctx, c.ID); !errors.Is(err, ErrResolved) {
		t.Errorf("Resolve() twice error = %v, want ErrResolved", err)
	}
	if err := s.Resolve(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Resolve(unknown) error = %v, want ErrNotFound", err)
	}
	if _, err := s.Respond(ctx, c.ID, staff.ID, "late reply"); !errors.Is(err, ErrResolved) {
		t.Errorf("Respond(resolved) error = %v, want ErrResolved", err)
	}
}
