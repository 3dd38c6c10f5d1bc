package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIngestResult_Transition(t *testing.T) {
	var r IngestResult
	r.Transition(StatePending)
	r.Transition(StateValidating)
	r.Transition(StateSkipped)

	assert.Equal(t, StateSkipped, r.State)
	assert.Equal(t, []IngestState{StatePending, StateValidating, StateSkipped}, r.Trace)
	assert.True(t, r.Succeeded())
	assert.True(t, r.State.Terminal())
}

func TestIngestResult_Fail(t *testing.T) {
	var r IngestResult
	r.Transition(StatePending)
	r.Fail(errors.New("boom"))

	assert.Equal(t, StateFailed, r.State)
	assert.EqualError(t, r.Err, "boom")
	assert.False(t, r.Succeeded())
}

func TestBatchResult_Failed(t *testing.T) {
	b := BatchResult{Results: []IngestResult{
		{Path: "a.pdf", State: StateDone},
		{Path: "b.pdf", State: StateFailed},
		{Path: "c.pdf", State: StateSkipped},
	}}

	failed := b.Failed()
	assert.Len(t, failed, 1)
	assert.Equal(t, "b.pdf", failed[0].Path)
	assert.Equal(t, 1, b.Count(StateDone))
	assert.Equal(t, 1, b.Count(StateSkipped))

	succeeded := b.Succeeded()
	assert.Len(t, succeeded, 2)
	assert.Equal(t, "a.pdf", succeeded[0].Path)
	assert.Equal(t, "c.pdf", succeeded[1].Path)
}

func TestIngestState_Terminal(t *testing.T) {
	assert.False(t, StateExtracting.Terminal())
	assert.False(t, StateCached.Terminal())
	assert.True(t, StateFailed.Terminal())
}
