package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/logger"
)

// Disk cache defaults.
const (
	DefaultDiskMaxBytes      = 500 * 1024 * 1024
	DefaultDiskMaxItems      = 1000
	DefaultDiskFlushInterval = 30 * time.Second

	indexFileName = "index.db"
	objectsDir    = "objects"
	objectExt     = ".bin"
)

var bucketEntries = []byte("entries")

// DiskConfig configures a DiskCache.
type DiskConfig struct {
	// Dir holds the index database and the value files.
	Dir string

	// MaxBytes caps the summed size of stored values.
	MaxBytes int64

	// MaxItems caps the number of stored values.
	MaxItems int

	// FlushInterval bounds how long access-time updates stay unpersisted.
	// Inserts and removals are persisted immediately.
	FlushInterval time.Duration
}

// diskEntry is the persisted index record of one value.
type diskEntry struct {
	File       string `json:"file"`
	Size       int64  `json:"size"`
	Created    int64  `json:"created"`
	LastAccess int64  `json:"last_access"`
}

// DiskCache stores byte values as files under a size-capped directory.
// The key index lives in a bbolt database so entries survive restarts.
//
// Locking: mu guards the in-memory index only and is never held during
// file or bbolt I/O. writeMu serialises writers so that index changes
// reach bbolt in the order they were applied in memory.
type DiskCache struct {
	cfg  DiskConfig
	db   *bbolt.DB
	objs string
	now  func() time.Time

	writeMu sync.Mutex

	mu        sync.Mutex
	entries   map[string]*diskEntry
	bytes     int64
	dirty     map[string]struct{}
	lastFlush time.Time

	hits, misses, evictions uint64
}

// OpenDiskCache opens or creates a disk cache in cfg.Dir and reconciles the
// persisted index with the files actually present.
func OpenDiskCache(cfg DiskConfig) (*DiskCache, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("%w: disk cache directory not set", domain.ErrCache)
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultDiskMaxBytes
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = DefaultDiskMaxItems
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultDiskFlushInterval
	}

	objs := filepath.Join(cfg.Dir, objectsDir)
	if err := os.MkdirAll(objs, 0700); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(cfg.Dir, indexFileName), 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening cache index: %w", err)
	}

	c := &DiskCache{
		cfg:       cfg,
		db:        db,
		objs:      objs,
		now:       time.Now,
		entries:   make(map[string]*diskEntry),
		dirty:     make(map[string]struct{}),
		lastFlush: time.Now(),
	}

	if err := c.load(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// load reads the index, drops entries whose file vanished and removes
// files no entry refers to.
func (c *DiskCache) load() error {
	var stale []string
	err := c.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketEntries)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var e diskEntry
			if err := json.Unmarshal(v, &e); err != nil {
				stale = append(stale, string(k))
				return nil
			}
			if _, err := os.Stat(filepath.Join(c.objs, e.File)); err != nil {
				stale = append(stale, string(k))
				return nil
			}
			c.entries[string(k)] = &e
			c.bytes += e.Size
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("loading cache index: %w", err)
	}

	if len(stale) > 0 {
		if err := c.persist(nil, stale); err != nil {
			return err
		}
		logger.Debug("disk cache: dropped %d stale index entries", len(stale))
	}

	referenced := make(map[string]struct{}, len(c.entries))
	for _, e := range c.entries {
		referenced[e.File] = struct{}{}
	}
	files, err := os.ReadDir(c.objs)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, f := range files {
		if _, ok := referenced[f.Name()]; !ok {
			_ = os.Remove(filepath.Join(c.objs, f.Name()))
		}
	}

	// Enforce limits in case they shrank since the last run.
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	victims := c.evictLocked(0)
	c.mu.Unlock()
	return c.removeVictims(victims)
}

// Get returns the value stored under key.
func (c *DiskCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.misses++
		c.mu.Unlock()
		return nil, false
	}
	e.LastAccess = c.now().UnixNano()
	c.dirty[key] = struct{}{}
	file := e.File
	c.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(c.objs, file))
	if err != nil {
		logger.Warn("disk cache: reading %s: %v", key, err)
		c.dropIfFile(key, file)
		c.mu.Lock()
		c.misses++
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
	c.maybeFlush()
	return data, true
}

// Put stores value under key, evicting the least recently accessed entries
// when the item or byte limit would be exceeded. Values larger than the
// byte limit are rejected with domain.ErrCache.
func (c *DiskCache) Put(key string, value []byte) error {
	size := int64(len(value))
	if size > c.cfg.MaxBytes {
		return fmt.Errorf("%w: value of %d bytes exceeds cache size", domain.ErrCache, size)
	}

	file := uuid.NewString() + objectExt
	if err := writeFileAtomic(filepath.Join(c.objs, file), value); err != nil {
		return fmt.Errorf("%w: writing cache file: %v", domain.ErrCache, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	now := c.now().UnixNano()
	entry := &diskEntry{File: file, Size: size, Created: now, LastAccess: now}

	c.mu.Lock()
	var victims []victim
	if old, ok := c.entries[key]; ok {
		victims = append(victims, victim{file: old.File})
		c.bytes -= old.Size
		delete(c.entries, key)
	}
	victims = append(victims, c.evictLocked(size)...)
	c.entries[key] = entry
	c.bytes += size
	delete(c.dirty, key)
	c.mu.Unlock()

	if err := c.persist(map[string]*diskEntry{key: entry}, victimKeys(victims)); err != nil {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur == entry {
			delete(c.entries, key)
			c.bytes -= size
		}
		c.mu.Unlock()
		_ = os.Remove(filepath.Join(c.objs, file))
		return err
	}
	c.removeFiles(victims)
	return nil
}

type victim struct {
	key  string
	file string
}

func victimKeys(vs []victim) []string {
	keys := make([]string, 0, len(vs))
	for _, v := range vs {
		if v.key != "" {
			keys = append(keys, v.key)
		}
	}
	return keys
}

// evictLocked removes oldest-accessed entries from the in-memory index until
// one more value of incoming bytes fits. Caller holds mu.
func (c *DiskCache) evictLocked(incoming int64) []victim {
	extra := 0
	if incoming > 0 {
		extra = 1
	}
	if len(c.entries)+extra <= c.cfg.MaxItems && c.bytes+incoming <= c.cfg.MaxBytes {
		return nil
	}

	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].LastAccess < c.entries[keys[j]].LastAccess
	})

	var victims []victim
	for _, k := range keys {
		if len(c.entries)+extra <= c.cfg.MaxItems && c.bytes+incoming <= c.cfg.MaxBytes {
			break
		}
		e := c.entries[k]
		victims = append(victims, victim{key: k, file: e.File})
		c.bytes -= e.Size
		delete(c.entries, k)
		delete(c.dirty, k)
		c.evictions++
	}
	return victims
}

// removeVictims deletes the index records, then the files, of victims.
func (c *DiskCache) removeVictims(victims []victim) error {
	if len(victims) == 0 {
		return nil
	}
	if err := c.persist(nil, victimKeys(victims)); err != nil {
		return err
	}
	c.removeFiles(victims)
	return nil
}

func (c *DiskCache) removeFiles(victims []victim) {
	for _, v := range victims {
		if err := os.Remove(filepath.Join(c.objs, v.file)); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("disk cache: removing %s: %v", v.file, err)
		}
	}
}

// dropIfFile removes key when it still points at file.
func (c *DiskCache) dropIfFile(key, file string) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok || e.File != file {
		c.mu.Unlock()
		return
	}
	c.bytes -= e.Size
	delete(c.entries, key)
	delete(c.dirty, key)
	c.mu.Unlock()

	if err := c.removeVictims([]victim{{key: key, file: file}}); err != nil {
		logger.Warn("disk cache: %v", err)
	}
}

// Delete removes key and its file.
func (c *DiskCache) Delete(key string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	c.bytes -= e.Size
	delete(c.entries, key)
	delete(c.dirty, key)
	c.mu.Unlock()

	return c.removeVictims([]victim{{key: key, file: e.File}})
}

// Clear removes every entry and file.
func (c *DiskCache) Clear() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	victims := make([]victim, 0, len(c.entries))
	for k, e := range c.entries {
		victims = append(victims, victim{key: k, file: e.File})
	}
	c.entries = make(map[string]*diskEntry)
	c.dirty = make(map[string]struct{})
	c.bytes = 0
	c.mu.Unlock()

	return c.removeVictims(victims)
}

// Flush persists pending access-time updates.
func (c *DiskCache) Flush() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.flushLocked()
}

func (c *DiskCache) flushLocked() error {
	c.mu.Lock()
	updates := make(map[string]*diskEntry, len(c.dirty))
	for k := range c.dirty {
		if e, ok := c.entries[k]; ok {
			cp := *e
			updates[k] = &cp
		}
	}
	c.dirty = make(map[string]struct{})
	c.lastFlush = c.now()
	c.mu.Unlock()

	if len(updates) == 0 {
		return nil
	}
	return c.persist(updates, nil)
}

func (c *DiskCache) maybeFlush() {
	c.mu.Lock()
	due := len(c.dirty) > 0 && c.now().Sub(c.lastFlush) >= c.cfg.FlushInterval
	c.mu.Unlock()
	if !due {
		return
	}
	if err := c.Flush(); err != nil {
		logger.Warn("disk cache: flushing index: %v", err)
	}
}

// persist writes puts and deletes to the index in one bbolt transaction.
func (c *DiskCache) persist(puts map[string]*diskEntry, deletes []string) error {
	err := c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketEntries)
		for _, k := range deletes {
			if err := b.Delete([]byte(k)); err != nil {
				return err
			}
		}
		for k, e := range puts {
			data, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(k), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: persisting cache index: %v", domain.ErrCache, err)
	}
	return nil
}

// Len returns the number of stored values.
func (c *DiskCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Size returns the summed size of stored values in bytes.
func (c *DiskCache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bytes
}

// Stats returns a snapshot of the cache counters.
func (c *DiskCache) Stats() domain.CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.CacheStats{
		Items:     len(c.entries),
		Bytes:     c.bytes,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string {
	return c.cfg.Dir
}

// Close flushes pending updates and closes the index.
func (c *DiskCache) Close() error {
	flushErr := c.Flush()
	if err := c.db.Close(); err != nil {
		return err
	}
	return flushErr
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+strings.TrimSuffix(filepath.Base(path), objectExt)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
