package memory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
)

type fakeProbe struct {
	sample driven.MemorySample
	err    error
}

func (f fakeProbe) Sample() (driven.MemorySample, error) {
	return f.sample, f.err
}

func TestSystemProbe_Sample(t *testing.T) {
	s, err := SystemProbe{}.Sample()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s.UsedPercent, 0.0)
	assert.LessOrEqual(t, s.UsedPercent, 100.0)
	assert.Greater(t, s.AvailableMB, 0.0)
}

func TestProcessUsage(t *testing.T) {
	u := ProcessUsage()
	assert.Greater(t, u.HeapMB, 0.0)
	if u.Available {
		assert.Greater(t, u.RSSMB, 0.0)
	}
}

func TestForceGC(t *testing.T) {
	garbage := make([][]byte, 0, 64)
	for i := 0; i < 64; i++ {
		garbage = append(garbage, make([]byte, 64*1024))
	}
	garbage = nil
	_ = garbage

	assert.GreaterOrEqual(t, ForceGC(), 0.0)
}

func TestGuard_Check(t *testing.T) {
	calls := 0
	g := NewGuard(fakeProbe{sample: driven.MemorySample{UsedPercent: 95}}, 80)
	g.collect = func() float64 { calls++; return 1 }

	assert.True(t, g.UnderPressure())
	assert.True(t, g.Check("window"))
	assert.Equal(t, 1, calls)
}

func TestGuard_NoPressure(t *testing.T) {
	calls := 0
	g := NewGuard(fakeProbe{sample: driven.MemorySample{UsedPercent: 30}}, 0)
	g.collect = func() float64 { calls++; return 0 }

	assert.False(t, g.Check("window"))
	assert.Equal(t, 0, calls)
	assert.Equal(t, DefaultThresholdPercent, g.threshold)
}

func TestGuard_ProbeErrorAndNil(t *testing.T) {
	assert.False(t, NewGuard(fakeProbe{err: errors.New("no procfs")}, 50).UnderPressure())
	assert.False(t, NewGuard(nil, 50).UnderPressure())

	var g *Guard
	assert.False(t, g.UnderPressure())
}
