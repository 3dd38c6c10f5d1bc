package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and clear caches",
	Long: `The OCR cache keeps recognised image text in memory and on disk so
re-ingesting a document skips OCR. Search results are cached in memory
for a few minutes.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	Args:  cobra.NoArgs,
	RunE:  runCacheStats,
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the OCR and search caches",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

// cacheTierOutput is the JSON form of a domain.CacheStats.
type cacheTierOutput struct {
	Items     int     `json:"items"`
	Bytes     int64   `json:"bytes"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	Evictions uint64  `json:"evictions"`
}

func toCacheTierOutput(s domain.CacheStats) cacheTierOutput {
	return cacheTierOutput{
		Items:     s.Items,
		Bytes:     s.Bytes,
		Hits:      s.Hits,
		Misses:    s.Misses,
		HitRate:   s.HitRate(),
		Evictions: s.Evictions,
	}
}

func runCacheStats(cmd *cobra.Command, _ []string) error {
	if services == nil || (services.Cache == nil && services.Search == nil) {
		return errors.New("cache not configured")
	}

	var mem, disk, search domain.CacheStats
	if services.Cache != nil {
		mem, disk = services.Cache.Stats()
	}
	if services.Search != nil {
		search = services.Search.CacheStats()
	}
	if jsonOutput {
		return printJSON(cmd, map[string]cacheTierOutput{
			"ocr_memory": toCacheTierOutput(mem),
			"ocr_disk":   toCacheTierOutput(disk),
			"search":     toCacheTierOutput(search),
		})
	}

	t := newTable("CACHE", "ITEMS", "SIZE", "HITS", "MISSES", "HIT RATE", "EVICTIONS")
	for _, row := range []struct {
		name  string
		stats domain.CacheStats
	}{
		{"ocr (memory)", mem},
		{"ocr (disk)", disk},
		{"search", search},
	} {
		s := row.stats
		t.Row(row.name,
			fmt.Sprint(s.Items),
			formatBytes(s.Bytes),
			fmt.Sprint(s.Hits),
			fmt.Sprint(s.Misses),
			fmt.Sprintf("%.0f%%", s.HitRate()*100),
			fmt.Sprint(s.Evictions))
	}
	cmd.Println(t.String())
	return nil
}

func runCacheClear(cmd *cobra.Command, _ []string) error {
	if services == nil || (services.Cache == nil && services.Search == nil) {
		return errors.New("cache not configured")
	}

	if services.Cache != nil {
		if err := services.Cache.Clear(); err != nil {
			return fmt.Errorf("failed to clear OCR cache: %w", err)
		}
	}
	if services.Search != nil {
		services.Search.Invalidate()
	}

	cmd.Println("Caches cleared.")
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
