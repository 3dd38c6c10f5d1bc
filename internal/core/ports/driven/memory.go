package driven

// MemorySample is a snapshot of system memory.
type MemorySample struct {
	// UsedPercent is the share of physical memory in use, 0-100.
	UsedPercent float64

	// AvailableMB is the memory available to new allocations.
	AvailableMB float64
}

// MemoryProbe samples system memory.
type MemoryProbe interface {
	Sample() (MemorySample, error)
}
