// Package cache provides the in-process and on-disk caches used by the
// ingestion pipeline and the search service.
//
//   - MemoryAwareLRU: item-bounded LRU that also sheds entries under system memory pressure
//   - TTLCache: entries expire after a time-to-live
//   - DiskCache: byte values in a size-capped directory with a bbolt index that survives restarts
//   - Memoizer: unbounded cache in front of a pure function
//   - Tiered: a MemoryAwareLRU in front of a DiskCache for string values
//
// Every cache is safe for concurrent use and is constructed explicitly;
// there are no package-level instances.
package cache
