package domain

// CacheStats is a point-in-time view of a cache.
type CacheStats struct {
	// Items is the number of live entries.
	Items int

	// Bytes is the summed size estimate of live entries.
	Bytes int64

	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns hits / (hits + misses), or 0 with no lookups.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
