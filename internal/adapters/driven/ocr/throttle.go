package ocr

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/logger"
)

// Throttled limits how often the wrapped engine is invoked.
type Throttled struct {
	engine  driven.OCREngine
	limiter *rate.Limiter
}

// NewThrottled wraps engine with a limit of perSecond calls and the given
// burst. A non-positive rate returns engine unchanged.
func NewThrottled(engine driven.OCREngine, perSecond float64, burst int) driven.OCREngine {
	if perSecond <= 0 {
		return engine
	}
	if burst < 1 {
		burst = 1
	}
	return &Throttled{
		engine:  engine,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Name identifies the wrapped engine.
func (t *Throttled) Name() string { return t.engine.Name() + " (throttled)" }

// ExtractText waits for a token, then delegates. A cancelled wait yields "".
func (t *Throttled) ExtractText(ctx context.Context, in domain.OCRInput) string {
	if err := t.limiter.Wait(ctx); err != nil {
		logger.Debug("ocr: rate limiter wait: %v", err)
		return ""
	}
	return t.engine.ExtractText(ctx, in)
}

// Noop is an engine that recognises nothing.
type Noop struct{}

var _ driven.OCREngine = Noop{}

// Name identifies the engine.
func (Noop) Name() string { return "none" }

// ExtractText always returns "".
func (Noop) ExtractText(context.Context, domain.OCRInput) string { return "" }
