package memory

import (
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/logger"
)

// DefaultThresholdPercent is the system memory usage above which Guard reports pressure.
const DefaultThresholdPercent = 80.0

// Guard watches system memory between units of work.
type Guard struct {
	probe     driven.MemoryProbe
	threshold float64
	collect   func() float64
}

// NewGuard creates a Guard. A nil probe disables pressure detection.
func NewGuard(probe driven.MemoryProbe, thresholdPercent float64) *Guard {
	if thresholdPercent <= 0 {
		thresholdPercent = DefaultThresholdPercent
	}
	return &Guard{probe: probe, threshold: thresholdPercent, collect: ForceGC}
}

// UnderPressure reports whether system usage is above the threshold.
// Probe failures count as no pressure.
func (g *Guard) UnderPressure() bool {
	if g == nil || g.probe == nil {
		return false
	}
	s, err := g.probe.Sample()
	if err != nil {
		logger.Debug("memory probe failed: %v", err)
		return false
	}
	return s.UsedPercent > g.threshold
}

// Check collects garbage when memory is under pressure and reports whether it did.
func (g *Guard) Check(label string) bool {
	if !g.UnderPressure() {
		return false
	}
	freed := g.collect()
	logger.Warn("memory pressure during %s: forced GC released %.1fMB", label, freed)
	return true
}
