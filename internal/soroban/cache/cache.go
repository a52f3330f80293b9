package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCleanupInterval is how often the janitor sweeps expired entries
const DefaultCleanupInterval = 60 * time.Second

// entry holds a cached value with its expiration instant
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Stats is a point-in-time view of the cache contents
type Stats struct {
	TotalEntries   int `json:"total_entries"`
	ActiveEntries  int `json:"active_entries"`
	ExpiredEntries int `json:"expired_entries"`
}

// Cache is an in-memory key/value store with per-entry expiration.
// Expired entries are invisible to Get but stay in memory until
// CleanupExpired removes them or Set overwrites them.
type Cache[V any] struct {
	mu         sync.RWMutex
	store      map[string]entry[V]
	defaultTTL time.Duration
	now        func() time.Time
}

// New creates a cache whose entries live for defaultTTL unless Set is given another TTL
func New[V any](defaultTTL time.Duration) *Cache[V] {
	return &Cache[V]{
		store:      make(map[string]entry[V]),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source, used by tests to move time forward
func (c *Cache[V]) WithClock(now func() time.Time) *Cache[V] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Get returns the value for key if present and not yet expired
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.store[key]
	if !ok {
		slog.Debug("Cache miss", "key", key)
		var zero V
		return zero, false
	}

	if !c.now().Before(e.expiresAt) {
		slog.Debug("Cache entry expired", "key", key)
		var zero V
		return zero, false
	}

	slog.Debug("Cache hit", "key", key)
	return e.value, true
}

// Set stores value under key. A ttl <= 0 means the cache default TTL.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	c.store[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(ttl),
	}
	c.mu.Unlock()

	slog.Debug("Cache set", "key", key, "ttl", ttl)
}

// Invalidate removes a single entry
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.store[key]; ok {
		delete(c.store, key)
		slog.Debug("Cache invalidated", "key", key)
	}
}

// CleanupExpired drops every expired entry and returns how many were removed
func (c *Cache[V]) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.store {
		if !now.Before(e.expiresAt) {
			delete(c.store, key)
			removed++
		}
	}

	if removed > 0 {
		slog.Info("🧹 Cleaned up expired cache entries", "removed", removed)
	}
	return removed
}

// Stats counts total, active and expired entries
func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	expired := 0
	for _, e := range c.store {
		if !now.Before(e.expiresAt) {
			expired++
		}
	}

	return Stats{
		TotalEntries:   len(c.store),
		ActiveEntries:  len(c.store) - expired,
		ExpiredEntries: expired,
	}
}

// Clear removes every entry
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	count := len(c.store)
	c.store = make(map[string]entry[V])
	c.mu.Unlock()

	slog.Info("Cleared cache entries", "count", count)
}

// StartJanitor runs CleanupExpired every interval until ctx is cancelled.
// It returns immediately; the sweep runs in its own goroutine.
func (c *Cache[V]) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.CleanupExpired()
			}
		}
	}()
}
