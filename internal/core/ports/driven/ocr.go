package driven

import (
	"context"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

// OCREngine recognises text in an image.
// Implementations return an empty string on timeouts, oversized images and
// engine failures rather than an error; the pipeline never depends on which
// engine is active.
type OCREngine interface {
	// ExtractText returns the recognised text, trimmed.
	ExtractText(ctx context.Context, in domain.OCRInput) string

	// Name identifies the engine in logs.
	Name() string
}
