package cache

import (
	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/logger"
)

// Tiered keeps string values in a MemoryAwareLRU backed by an optional
// DiskCache. Disk hits are promoted back into memory. Disk failures
// degrade to misses.
type Tiered struct {
	mem  *MemoryAwareLRU[string, string]
	disk *DiskCache
}

// NewTiered creates a two-tier cache. disk may be nil.
func NewTiered(mem *MemoryAwareLRU[string, string], disk *DiskCache) *Tiered {
	return &Tiered{mem: mem, disk: disk}
}

// Get looks in memory, then on disk.
func (t *Tiered) Get(key string) (string, bool) {
	if v, ok := t.mem.Get(key); ok {
		return v, true
	}
	if t.disk == nil {
		return "", false
	}
	data, ok := t.disk.Get(key)
	if !ok {
		return "", false
	}
	v := string(data)
	t.mem.Put(key, v, int64(len(v)))
	return v, true
}

// Put stores value in both tiers.
func (t *Tiered) Put(key, value string) {
	t.mem.Put(key, value, int64(len(value)))
	if t.disk == nil {
		return
	}
	if err := t.disk.Put(key, []byte(value)); err != nil {
		logger.Warn("cache: disk put %s: %v", key, err)
	}
}

// Clear empties both tiers.
func (t *Tiered) Clear() error {
	t.mem.Clear()
	if t.disk == nil {
		return nil
	}
	return t.disk.Clear()
}

// Stats returns memory and disk statistics; disk is zero without a disk tier.
func (t *Tiered) Stats() (mem, disk domain.CacheStats) {
	mem = t.mem.Stats()
	if t.disk != nil {
		disk = t.disk.Stats()
	}
	return mem, disk
}
