// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package profiles stores users and answers role/region lookups for the
// voting workflow.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/db"
	"github.com/campusbus/extrabus/models"
)

var (
	ErrNotFound       = errors.New("profile not found")
	ErrEmailTaken     = errors.New("email already registered")
	ErrInvalidProfile = errors.New("invalid profile")
)

type Store struct {
	db    *sql.DB
	clock clock.Clock
}

func NewStore(conn *sql.DB, c clock.Clock) *Store {
	return &Store{db: conn, clock: clock.Resolve(c)}
}

// Create inserts a profile and returns it with ID and timestamp filled.
func (s *Store) Create(ctx context.Context, p models.Profile) (models.Profile, error) {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Region = strings.TrimSpace(p.Region)
	if p.FullName == "" || p.Email == "" || !ValidRole(p.Role) {
		return models.Profile{}, ErrInvalidProfile
	}
	if p.ID == "" {
		p.ID = db.NewID()
	}
	p.CreatedAt = s.clock.Now()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, full_name, email, role, region, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.FullName, p.Email, p.Role, p.Region, db.ToMillis(p.CreatedAt))
	if err != nil {
		if db.IsUniqueViolation(err) {
			return models.Profile{}, ErrEmailTaken
		}
		return models.Profile{}, fmt.Errorf("insert profile: %w", err)
	}
	return p, nil
}

// EnsureAdmin creates the admin profile with the given ID if it is missing.
// It reports whether a profile was created.
func (s *Store) EnsureAdmin(ctx context.Context, id, email string) (bool, error) {
	if _, err := s.Get(ctx, id); err == nil {
		return false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return false, err
	}
	_, err := s.Create(ctx, models.Profile{
		ID:       id,
		FullName: "Administrator",
		Email:    email,
		Role:     models.RoleAdmin,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, id string) (models.Profile, error) {
	var p models.Profile
	var createdAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, full_name, email, role, region, created_at
		FROM profiles WHERE id = $1
	`, id).Scan(&p.ID, &p.FullName, &p.Email, &p.Role, &p.Region, &createdAt)
	if err == sql.ErrNoRows {
		return models.Profile{}, ErrNotFound
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("query profile: %w", err)
	}
	p.CreatedAt = db.FromMillis(createdAt)
	return p, nil
}

// List returns profiles, optionally filtered by role.
func (s *Store) List(ctx context.Context, role string) ([]models.Profile, error) {
	query := `SELECT id, full_name, email, role, region, created_at FROM profiles`
	var args []any
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	query += ` ORDER BY created_at, id`
	return s.query(ctx, query, args...)
}

// ByRoleInRegion returns every profile with role in region.
func (s *Store) ByRoleInRegion(ctx context.Context, role, region string) ([]models.Profile, error) {
	return s.query(ctx, `
		SELECT id, full_name, email, role, region, created_at
		FROM profiles WHERE role = $1 AND region = $2
		ORDER BY id
	`, role, region)
}

// IDsByRole returns the IDs of every profile with role.
func (s *Store) IDsByRole(ctx context.Context, role string) ([]string, error) {
	profiles, err := s.List(ctx, role)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]models.Profile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		var p models.Profile
		var createdAt int64
		if err := rows.Scan(&p.ID, &p.FullName, &p.Email, &p.Role, &p.Region, &createdAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		p.CreatedAt = db.FromMillis(createdAt)
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func ValidRole(role string) bool {
	switch role {
	case models.RoleStudent, models.RoleDriver, models.RoleCoordinator, models.RoleAdmin:
		return true
	}
	return false
}
