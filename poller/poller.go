// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/decisions"
	"github.com/campusbus/extrabus/ledger"
	"github.com/campusbus/extrabus/models"
	"github.com/campusbus/extrabus/threshold"
	"github.com/campusbus/extrabus/topics"
)

const (
	DefaultInterval = time.Minute
	// DefaultNudgeGap is the minimum time between a finished tick and a nudge.
	DefaultNudgeGap = 5 * time.Second
)

// Report counts what one tick changed.
type Report struct {
	VotesDeleted     int64
	TopicsRecounted  int
	TopicsExpired    int
	TopicsEscalated  int
	TopicsResumed    int
	TopicsEvaluated  int
	TopicsProcessing int
	Skipped          bool
}

// Changed reports whether the tick modified any state.
func (r Report) Changed() bool {
	return r.VotesDeleted > 0 || r.TopicsExpired > 0 || r.TopicsEscalated > 0 ||
		r.TopicsResumed > 0 || r.TopicsProcessing > 0
}

type Config struct {
	Interval time.Duration
	NudgeGap time.Duration
}

// Poller runs the periodic vote expiry, topic expiry, escalation and
// threshold pass.
type Poller struct {
	ledger    *ledger.Ledger
	topics    *topics.Store
	eval      *threshold.Evaluator
	decisions *decisions.Service
	cache     *topics.Cache
	clock     clock.Clock
	cfg       Config
	logger    *slog.Logger

	running  sync.Mutex
	mu       sync.Mutex
	lastTick time.Time
}

func New(l *ledger.Ledger, ts *topics.Store, eval *threshold.Evaluator, d *decisions.Service, cache *topics.Cache, c clock.Clock, cfg Config, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.NudgeGap <= 0 {
		cfg.NudgeGap = DefaultNudgeGap
	}
	c = clock.Resolve(c)
	if cache == nil {
		cache = topics.NewCache(c, topics.DefaultCacheTTL)
	}
	return &Poller{
		ledger:    l,
		topics:    ts,
		eval:      eval,
		decisions: d,
		cache:     cache,
		clock:     c,
		cfg:       cfg,
		logger:    logger,
	}
}

// Cache returns the topic list cache the poller invalidates after changes.
func (p *Poller) Cache() *topics.Cache {
	return p.cache
}

// Run ticks every interval until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.logger.Info("poller started", "interval", p.cfg.Interval)
	p.runTick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			p.runTick(ctx)
		}
	}
}

func (p *Poller) runTick(ctx context.Context) {
	if _, err := p.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error("poller tick failed", "error", err)
	}
}

// Nudge runs a tick unless one finished within the nudge gap or one is
// running now. It reports whether a tick ran.
func (p *Poller) Nudge(ctx context.Context) (bool, error) {
	p.mu.Lock()
	recent := !p.lastTick.IsZero() && p.clock.Now().Sub(p.lastTick) < p.cfg.NudgeGap
	p.mu.Unlock()
	if recent {
		return false, nil
	}
	r, err := p.Tick(ctx)
	return !r.Skipped, err
}

// Tick runs one pass. A tick that starts while another is running returns
// immediately with Skipped set. Errors on individual topics are logged and
// the pass continues.
func (p *Poller) Tick(ctx context.Context) (Report, error) {
	if !p.running.TryLock() {
		return Report{Skipped: true}, nil
	}
	defer p.running.Unlock()

	var r Report
	err := p.tick(ctx, &r)

	p.mu.Lock()
	p.lastTick = p.clock.Now()
	p.mu.Unlock()

	if r.Changed() {
		p.cache.Invalidate()
		p.logger.Info("poller tick",
			"votes_deleted", r.VotesDeleted,
			"recounted", r.TopicsRecounted,
			"expired", r.TopicsExpired,
			"escalated", r.TopicsEscalated,
			"resumed", r.TopicsResumed,
			"processing", r.TopicsProcessing)
	}
	return r, err
}

func (p *Poller) tick(ctx context.Context, r *Report) error {
	// 1. expired votes
	touched, deleted, err := p.ledger.SweepExpired(ctx)
	if err != nil {
		return err
	}
	r.VotesDeleted = deleted
	for _, id := range touched {
		if _, err := p.eval.Recount(ctx, id); err != nil {
			p.logger.Warn("failed to recount topic", "topic_id", id, "error", err)
			continue
		}
		r.TopicsRecounted++
	}

	// 2. topics past their end date
	now := p.clock.Now()
	overdue, err := p.topics.ListOverdue(ctx, now)
	if err != nil {
		return err
	}
	for _, t := range overdue {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := p.decisions.Expire(ctx, t); err != nil {
			if !errors.Is(err, topics.ErrStaleTopic) {
				p.logger.Warn("failed to expire topic", "topic_id", t.ID, "error", err)
			}
			continue
		}
		r.TopicsExpired++
	}

	// 3. processing topics whose driver request never opened a window
	processing, err := p.topics.List(ctx, models.StatusProcessing)
	if err != nil {
		return err
	}
	for _, t := range processing {
		if err := ctx.Err(); err != nil {
			return err
		}
		resumed, err := p.eval.Resume(ctx, t)
		if err != nil {
			if !errors.Is(err, topics.ErrStaleTopic) {
				p.logger.Warn("failed to resume driver request", "topic_id", t.ID, "error", err)
			}
			continue
		}
		if resumed {
			r.TopicsResumed++
		}
	}

	// 4. driver response windows with no acceptance
	elapsed, err := p.eval.Windows().Elapsed(ctx, now)
	if err != nil {
		return err
	}
	for _, w := range elapsed {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.escalateWindow(ctx, w) {
			r.TopicsEscalated++
		}
	}

	// 5. thresholds of every active topic
	active, err := p.topics.List(ctx, models.StatusActive)
	if err != nil {
		return err
	}
	for _, t := range active {
		if err := ctx.Err(); err != nil {
			return err
		}
		outcome, err := p.eval.Evaluate(ctx, t.ID)
		if err != nil {
			p.logger.Warn("failed to evaluate topic", "topic_id", t.ID, "error", err)
			continue
		}
		r.TopicsEvaluated++
		if outcome == threshold.OutcomeDriversNotified || outcome == threshold.OutcomeEscalated {
			r.TopicsProcessing++
		}
	}
	return nil
}

// escalateWindow escalates the window's topic if it is still processing and
// closes the window either way.
func (p *Poller) escalateWindow(ctx context.Context, w models.DriverResponsePending) bool {
	topic, err := p.topics.Get(ctx, w.TopicID)
	if err != nil {
		p.logger.Warn("failed to load topic for elapsed window", "topic_id", w.TopicID, "error", err)
		return false
	}
	if topic.Status != models.StatusProcessing {
		if _, err := p.eval.Windows().Resolve(ctx, w.TopicID, models.OutcomeClosed, p.clock.Now()); err != nil {
			p.logger.Warn("failed to resolve driver response window", "topic_id", w.TopicID, "error", err)
		}
		return false
	}
	if _, err := p.eval.Escalate(ctx, topic, "no driver responded in time"); err != nil {
		if !errors.Is(err, topics.ErrStaleTopic) {
			p.logger.Warn("failed to escalate topic", "topic_id", w.TopicID, "error", err)
		}
		return false
	}
	return true
}
