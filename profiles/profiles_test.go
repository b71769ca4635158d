// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package profiles

import (
	"context"
	"errors"
	"testing"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/testutil"
)

func TestCreateAndGet(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	store := NewStore(conn, clock.NewFake(testutil.Epoch))
	ctx := context.Background()

	p, err := store.Create(ctx, models.Profile{
		FullName: "  Ada Student ",
		Email:    "ADA@Campus.test",
		Role:     models.RoleStudent,
		Region:   "north",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if p.ID == "" {
		t.Fatal("Expected generated ID")
	}

	got, err := store.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Email != "ada@campus.test" || got.FullName != "Ada Student" {
		t.Errorf("Expected normalized fields, got %+v", got)
	}
	if !got.CreatedAt.Equal(testutil.Epoch) {
		t.Errorf("Expected created_at %v, got %v", testutil.Epoch, got.CreatedAt)
	}
}

func TestCreateValidation(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	store := NewStore(conn, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		profile models.Profile
		wantErr error
	}{
		{"missing name", models.Profile{Email: "a@b.c", Role: models.RoleStudent}, ErrInvalidProfile},
		{"missing email", models.Profile{FullName: "A", Role: models.RoleStudent}, ErrInvalidProfile},
		{"bad role", models.Profile{FullName: "A", Email: "a@b.c", Role: "pilot"}, ErrInvalidProfile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Create(ctx, tt.profile)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := store.Create(ctx, models.Profile{FullName: "A", Email: "dup@b.c", Role: models.RoleDriver}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Create(ctx, models.Profile{FullName: "B", Email: "dup@b.c", Role: models.RoleDriver}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("Expected ErrEmailTaken, got %v", err)
	}
}

func TestByRoleInRegion(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	store := NewStore(conn, nil)
	ctx := context.Background()

	d1 := testutil.CreateTestProfile(t, conn, models.RoleDriver, "north")
	d2 := testutil.CreateTestProfile(t, conn, models.RoleDriver, "north")
	testutil.CreateTestProfile(t, conn, models.RoleDriver, "south")
	testutil.CreateTestProfile(t, conn, models.RoleStudent, "north")

	drivers, err := store.ByRoleInRegion(ctx, models.RoleDriver, "north")
	if err != nil {
		t.Fatal(err)
	}
	if len(drivers) != 2 {
		t.Fatalf("Expected 2 drivers, got %d", len(drivers))
	}
	seen := map[string]bool{drivers[0].ID: true, drivers[1].ID: true}
	if !seen[d1.ID] || !seen[d2.ID] {
		t.Errorf("Unexpected drivers: %+v", drivers)
	}

	ids, err := store.IDsByRole(ctx, models.RoleDriver)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 3 {
		t.Errorf("Expected 3 driver IDs, got %d", len(ids))
	}
}

func TestEnsureAdmin(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	store := NewStore(conn, nil)
	ctx := context.Background()

	created, err := store.EnsureAdmin(ctx, "admin-1", "root@campus.test")
	if err != nil || !created {
		t.Fatalf("EnsureAdmin() = %v, %v; want true, nil", created, err)
	}

	created, err = store.EnsureAdmin(ctx, "admin-1", "root@campus.test")
	if err != nil || created {
		t.Fatalf("second EnsureAdmin() = %v, %v; want false, nil", created, err)
	}

	p, err := store.Get(ctx, "admin-1")
	if err != nil {
		t.Fatal(err)
	}
	if p.Role != models.RoleAdmin {
		t.Errorf("Expected admin role, got %s", p.Role)
	}
}
