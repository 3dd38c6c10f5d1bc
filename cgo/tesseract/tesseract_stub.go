//go:build !cgo || !tesseract

package tesseract

import (
	"context"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
)

// Ensure Engine implements the interface.
var _ driven.OCREngine = (*Engine)(nil)

// Engine recognises text in-process with libtesseract.
// This is a stub for builds without CGO or the tesseract tag.
type Engine struct {
	languages []string
}

// New creates a stub engine.
func New(languages []string, _, _ int) *Engine {
	return &Engine{languages: languages}
}

// Available reports whether the native library was compiled in.
func Available() bool { return false }

// Name identifies the engine.
func (e *Engine) Name() string { return "libtesseract (unavailable)" }

// ExtractText always returns "".
func (e *Engine) ExtractText(_ context.Context, _ domain.OCRInput) string {
	return ""
}
