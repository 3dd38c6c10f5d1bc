package cache

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/logger"
)

// LRU defaults.
const (
	DefaultMaxItems         = 100
	DefaultMaxMemoryPercent = 75.0
	DefaultMinFreeMB        = 500.0
)

// LRUConfig configures a MemoryAwareLRU.
type LRUConfig struct {
	// MaxItems bounds the number of entries. Defaults to DefaultMaxItems.
	MaxItems int

	// MaxMemoryPercent is the system memory usage above which a quarter
	// of the entries are shed before an insert.
	MaxMemoryPercent float64

	// MinFreeMB is the available memory floor. Below it, entries are shed in
	// proportion to how far below the floor the system is. Negative disables it.
	MinFreeMB float64

	// Probe samples system memory. Nil disables memory pressure eviction.
	Probe driven.MemoryProbe
}

type lruEntry[V any] struct {
	value V
	size  int64
}

// MemoryAwareLRU is a least-recently-used cache that checks system memory
// before every insert.
type MemoryAwareLRU[K comparable, V any] struct {
	mu    sync.Mutex
	cfg   LRUConfig
	items *simplelru.LRU[K, lruEntry[V]]
	bytes int64

	hits, misses, evictions uint64
	clearing                bool
}

// NewMemoryAwareLRU creates a cache from cfg, filling in defaults.
func NewMemoryAwareLRU[K comparable, V any](cfg LRUConfig) *MemoryAwareLRU[K, V] {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultMaxItems
	}
	if cfg.MaxMemoryPercent <= 0 {
		cfg.MaxMemoryPercent = DefaultMaxMemoryPercent
	}
	if cfg.MinFreeMB == 0 {
		cfg.MinFreeMB = DefaultMinFreeMB
	}

	c := &MemoryAwareLRU[K, V]{cfg: cfg}
	// Size is positive, so NewLRU cannot fail.
	c.items, _ = simplelru.NewLRU[K, lruEntry[V]](cfg.MaxItems, c.onEvict)
	return c
}

// onEvict runs with c.mu held, from inside simplelru.
func (c *MemoryAwareLRU[K, V]) onEvict(_ K, e lruEntry[V]) {
	c.bytes -= e.size
	if !c.clearing {
		c.evictions++
	}
}

// Get returns the cached value and marks it recently used.
func (c *MemoryAwareLRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.items.Get(key)
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// Put stores value under key. size is the caller's estimate of the value's
// footprint in bytes and only feeds statistics.
func (c *MemoryAwareLRU[K, V]) Put(key K, value V, size int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.relievePressure()

	if old, ok := c.items.Peek(key); ok {
		c.bytes -= old.size
	}
	// Add evicts exactly one oldest entry when a new key overflows MaxItems.
	c.items.Add(key, lruEntry[V]{value: value, size: size})
	c.bytes += size
}

// relievePressure sheds oldest entries when system memory is tight.
func (c *MemoryAwareLRU[K, V]) relievePressure() {
	if c.cfg.Probe == nil || c.items.Len() == 0 {
		return
	}
	s, err := c.cfg.Probe.Sample()
	if err != nil {
		logger.Debug("cache memory probe failed: %v", err)
		return
	}

	n := c.items.Len()
	var evict int
	switch {
	case s.UsedPercent > c.cfg.MaxMemoryPercent:
		evict = max(1, n/4)
	case c.cfg.MinFreeMB > 0 && s.AvailableMB < c.cfg.MinFreeMB:
		ratio := 1.0 - s.AvailableMB/c.cfg.MinFreeMB
		evict = max(1, int(float64(n)*ratio*0.5))
	default:
		return
	}

	for i := 0; i < evict; i++ {
		if _, _, ok := c.items.RemoveOldest(); !ok {
			break
		}
	}
	logger.Debug("cache under memory pressure (%.1f%% used, %.0fMB free): evicted %d of %d entries",
		s.UsedPercent, s.AvailableMB, evict, n)
}

// Delete removes key and reports whether it was present.
func (c *MemoryAwareLRU[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearing = true
	defer func() { c.clearing = false }()
	return c.items.Remove(key)
}

// Len returns the number of entries.
func (c *MemoryAwareLRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Len()
}

// Clear removes every entry. Statistics counters are kept.
func (c *MemoryAwareLRU[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.clearing = true
	c.items.Purge()
	c.clearing = false
	c.bytes = 0
}

// Stats returns a snapshot of the cache counters.
func (c *MemoryAwareLRU[K, V]) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CacheStats{
		Items:     c.items.Len(),
		Bytes:     c.bytes,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}
