package cache

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

// DefaultTTL is the lifetime of TTLCache entries when none is given.
const DefaultTTL = 300 * time.Second

type ttlEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache holds entries until their time-to-live elapses.
// An expired entry behaves as a miss and is removed on lookup.
type TTLCache[K comparable, V any] struct {
	mu       sync.Mutex
	items    map[K]ttlEntry[V]
	ttl      time.Duration
	maxItems int
	now      func() time.Time

	hits, misses, evictions uint64
}

// TTLOption configures a TTLCache.
type TTLOption func(*ttlOptions)

type ttlOptions struct {
	maxItems int
	now      func() time.Time
}

// WithMaxItems bounds the cache; when full, the entry closest to expiry is dropped.
func WithMaxItems(n int) TTLOption {
	return func(o *ttlOptions) { o.maxItems = n }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TTLOption {
	return func(o *ttlOptions) { o.now = now }
}

// NewTTLCache creates a cache whose entries live for ttl (DefaultTTL if <= 0).
func NewTTLCache[K comparable, V any](ttl time.Duration, opts ...TTLOption) *TTLCache[K, V] {
	o := ttlOptions{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TTLCache[K, V]{
		items:    make(map[K]ttlEntry[V]),
		ttl:      ttl,
		maxItems: o.maxItems,
		now:      o.now,
	}
}

// Get returns the value if present and not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Put stores value with the default TTL.
func (c *TTLCache[K, V]) Put(key K, value V) {
	c.PutWithTTL(key, value, c.ttl)
}

// PutWithTTL stores value with a specific TTL (the default if <= 0).
func (c *TTLCache[K, V]) PutWithTTL(key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.items[key]; !exists && c.maxItems > 0 && len(c.items) >= c.maxItems {
		c.clearExpiredLocked(now)
		if len(c.items) >= c.maxItems {
			c.evictSoonestLocked()
		}
	}
	c.items[key] = ttlEntry[V]{value: value, expiresAt: now.Add(ttl)}
}

func (c *TTLCache[K, V]) evictSoonestLocked() {
	var (
		victim  K
		soonest time.Time
		found   bool
	)
	for k, e := range c.items {
		if !found || e.expiresAt.Before(soonest) {
			victim, soonest, found = k, e.expiresAt, true
		}
	}
	if found {
		delete(c.items, victim)
		c.evictions++
	}
}

// ClearExpired removes all expired entries and returns how many were removed.
func (c *TTLCache[K, V]) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearExpiredLocked(c.now())
}

func (c *TTLCache[K, V]) clearExpiredLocked(now time.Time) int {
	removed := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Delete removes key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Clear removes every entry.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]ttlEntry[V])
}

// Len returns the number of stored entries, expired or not.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Stats returns a snapshot of the cache counters.
func (c *TTLCache[K, V]) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CacheStats{
		Items:     len(c.items),
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Run purges expired entries every interval until ctx is cancelled.
func (c *TTLCache[K, V]) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.ClearExpired()
		}
	}
}
