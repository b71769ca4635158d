// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"testing"
	"time"

	"github.com/campusbus/extrabus/cliparse"
	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/middleware"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/notify"
	"github.com/campusbus/extrabus/testutil"
)

type testEnv struct {
	db    *sql.DB
	cfg   cliparse.Config
	clock *clock.Fake
	svc   *Services
}

func newTestEnv(t *testing.T, mutate ...func(*cliparse.Config)) *testEnv {
	t.Helper()
	conn := testutil.SetupTestDB(t)
	cfg := testutil.GetTestConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	fake := clock.NewFake(testutil.Epoch)
	svc := NewServices(conn, cfg, fake, nil, notify.Retry{Attempts: 1, Delay: time.Millisecond}, nil)
	return &testEnv{db: conn, cfg: cfg, clock: fake, svc: svc}
}

// asUser attaches p the way RequireRole does
func asUser(req *http.Request, p models.Profile) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), p))
}

func lowThreshold(cfg *cliparse.Config) {
	cfg.VoteThreshold = 1
}
