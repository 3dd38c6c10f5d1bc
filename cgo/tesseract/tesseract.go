//go:build cgo && tesseract

package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/custodia-labs/pdfsearch/internal/adapters/driven/ocr"
	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/logger"
)

// Ensure Engine implements the interface.
var _ driven.OCREngine = (*Engine)(nil)

// Engine recognises text in-process with libtesseract.
type Engine struct {
	languages    []string
	maxPixels    int
	maxDimension int
}

// New creates an engine for the given languages. Zero limits use the
// subprocess engine defaults.
func New(languages []string, maxPixels, maxDimension int) *Engine {
	if len(languages) == 0 {
		languages = []string{"eng"}
	}
	if maxPixels <= 0 {
		maxPixels = ocr.DefaultMaxPixels
	}
	if maxDimension <= 0 {
		maxDimension = ocr.DefaultMaxDimension
	}
	return &Engine{languages: languages, maxPixels: maxPixels, maxDimension: maxDimension}
}

// Available reports whether the native library was compiled in.
func Available() bool { return true }

// Name identifies the engine.
func (e *Engine) Name() string { return "libtesseract" }

// ExtractText returns the recognised text or "" on any failure.
// libtesseract cannot be interrupted, so a cancelled context abandons the
// call and the worker goroutine finishes in the background.
func (e *Engine) ExtractText(ctx context.Context, in domain.OCRInput) string {
	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := e.recognize(in)
		done <- result{text, err}
	}()

	select {
	case <-ctx.Done():
		logger.Warn("ocr: libtesseract abandoned: %v", ctx.Err())
		return ""
	case r := <-done:
		if r.err != nil {
			logger.Warn("ocr: %v", r.err)
			return ""
		}
		return r.text
	}
}

func (e *Engine) recognize(in domain.OCRInput) (string, error) {
	w, h, err := ocr.Dimensions(in)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrOCRFailure, err)
	}
	if w*h > e.maxPixels {
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", domain.ErrImageTooLarge, w, h, e.maxPixels)
	}

	img, err := ocr.Decode(in)
	if err != nil {
		return "", fmt.Errorf("%w: decoding image: %v", domain.ErrOCRFailure, err)
	}
	data, err := ocr.EncodePNG(ocr.Preprocess(img, e.maxDimension))
	if err != nil {
		return "", fmt.Errorf("%w: encoding image: %v", domain.ErrOCRFailure, err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.languages...); err != nil {
		return "", fmt.Errorf("%w: set languages: %v", domain.ErrOCRFailure, err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("%w: set image: %v", domain.ErrOCRFailure, err)
	}

	// Line boxes keep the reading order tesseract detected.
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err == nil && len(boxes) > 0 {
		lines := make([]string, 0, len(boxes))
		for _, b := range boxes {
			if line := strings.TrimSpace(b.Word); line != "" {
				lines = append(lines, line)
			}
		}
		return strings.Join(lines, "\n"), nil
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("%w: recognize text: %v", domain.ErrOCRFailure, err)
	}
	return strings.TrimSpace(text), nil
}
