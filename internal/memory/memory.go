// Package memory samples system and process memory and releases heap
// memory back to the OS between large units of work.
package memory

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/logger"
)

const mb = 1024 * 1024

// SystemProbe reads system memory through gopsutil.
type SystemProbe struct{}

var _ driven.MemoryProbe = SystemProbe{}

// Sample returns the current used percentage and available memory.
func (SystemProbe) Sample() (driven.MemorySample, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return driven.MemorySample{}, err
	}
	return driven.MemorySample{
		UsedPercent: vm.UsedPercent,
		AvailableMB: float64(vm.Available) / mb,
	}, nil
}

// Usage describes the memory held by this process.
type Usage struct {
	RSSMB     float64
	VMSMB     float64
	Percent   float32
	HeapMB    float64
	NumGC     uint32
	Available bool
}

// ProcessUsage reports resident and virtual memory of the running process.
// When the OS does not expose process stats only the Go heap fields are set.
func ProcessUsage() Usage {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	u := Usage{
		HeapMB: float64(ms.HeapAlloc) / mb,
		NumGC:  ms.NumGC,
	}

	p, err := process.NewProcess(int32(os.Getpid())) //nolint:gosec // pid fits in int32
	if err != nil {
		return u
	}
	info, err := p.MemoryInfo()
	if err != nil {
		return u
	}
	u.RSSMB = float64(info.RSS) / mb
	u.VMSMB = float64(info.VMS) / mb
	if pct, err := p.MemoryPercent(); err == nil {
		u.Percent = pct
	}
	u.Available = true
	return u
}

// ForceGC runs a full collection, returns freed pages to the OS and
// reports how many heap megabytes were released.
func ForceGC() float64 {
	var before, after runtime.MemStats
	runtime.ReadMemStats(&before)
	runtime.GC()
	debug.FreeOSMemory()
	runtime.ReadMemStats(&after)
	if after.HeapAlloc >= before.HeapAlloc {
		return 0
	}
	return float64(before.HeapAlloc-after.HeapAlloc) / mb
}

// LogUsage writes the process memory usage at debug level.
func LogUsage(label string) {
	u := ProcessUsage()
	if u.Available {
		logger.Debug("memory [%s]: rss=%.1fMB vms=%.1fMB (%.1f%%) heap=%.1fMB",
			label, u.RSSMB, u.VMSMB, u.Percent, u.HeapMB)
		return
	}
	logger.Debug("memory [%s]: heap=%.1fMB gc=%d", label, u.HeapMB, u.NumGC)
}
