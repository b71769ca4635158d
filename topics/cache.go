// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package topics

import (
	"context"
	"sync"
	"time"

	"github.com/campusbus/extrabus/clock"
	"github.com/campusbus/extrabus/models"
)

// DefaultCacheTTL is how long a loaded topic list is served before reloading.
const DefaultCacheTTL = 5 * time.Second

// LoadFunc loads the topic list a Cache serves.
type LoadFunc func(ctx context.Context) ([]models.VotingTopic, error)

// Cache holds one topic list for a short TTL. Loads are serialized so
// concurrent readers of an expired entry trigger a single query.
type Cache struct {
	mu        sync.Mutex
	clock     clock.Clock
	ttl       time.Duration
	topics    []models.VotingTopic
	fetchedAt time.Time
	valid     bool
}

func NewCache(c clock.Clock, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{clock: clock.Resolve(c), ttl: ttl}
}

// Get returns the cached list, calling load when the entry is missing or stale.
// Load errors are returned and leave the previous entry untouched.
func (c *Cache) Get(ctx context.Context, load LoadFunc) ([]models.VotingTopic, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if c.valid && now.Sub(c.fetchedAt) < c.ttl {
		return append([]models.VotingTopic(nil), c.topics...), nil
	}

	topics, err := load(ctx)
	if err != nil {
		return nil, err
	}
	c.topics = topics
	c.fetchedAt = now
	c.valid = true
	return append([]models.VotingTopic(nil), topics...), nil
}

// Invalidate drops the cached entry so the next Get reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.topics = nil
	c.mu.Unlock()
}
