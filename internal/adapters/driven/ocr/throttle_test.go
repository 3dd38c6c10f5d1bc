package ocr

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

type countingEngine struct {
	calls atomic.Int32
}

func (c *countingEngine) Name() string { return "counting" }

func (c *countingEngine) ExtractText(context.Context, domain.OCRInput) string {
	c.calls.Add(1)
	return "text"
}

func TestNewThrottled_DisabledReturnsEngine(t *testing.T) {
	inner := &countingEngine{}
	assert.Same(t, inner, NewThrottled(inner, 0, 1))
}

func TestThrottled_Delegates(t *testing.T) {
	inner := &countingEngine{}
	engine := NewThrottled(inner, 1000, 5)

	for i := 0; i < 5; i++ {
		assert.Equal(t, "text", engine.ExtractText(context.Background(), domain.OCRInput{}))
	}
	assert.Equal(t, int32(5), inner.calls.Load())
	assert.Equal(t, "counting (throttled)", engine.Name())
}

func TestThrottled_CancelledWaitReturnsEmpty(t *testing.T) {
	inner := &countingEngine{}
	engine := NewThrottled(inner, 0.001, 1)

	// Consume the single burst token.
	engine.ExtractText(context.Background(), domain.OCRInput{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Equal(t, "", engine.ExtractText(ctx, domain.OCRInput{}))
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestNoop(t *testing.T) {
	assert.Equal(t, "", Noop{}.ExtractText(context.Background(), domain.OCRInput{Data: []byte{1}}))
	assert.Equal(t, "none", Noop{}.Name())
}
