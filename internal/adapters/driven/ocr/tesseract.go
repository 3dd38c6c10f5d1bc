package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/logger"
)

// Tesseract defaults.
const (
	DefaultBinary       = "tesseract"
	DefaultTimeout      = 360 * time.Second
	DefaultMaxPixels    = 25_000_000
	DefaultMaxDimension = 2500
	DefaultWaitDelay    = 2 * time.Second
)

// TesseractConfig configures the subprocess engine.
type TesseractConfig struct {
	// Binary is the tesseract executable name or path.
	Binary string

	// Languages passed with -l, joined by '+'. Defaults to eng.
	Languages []string

	// Timeout bounds a single invocation.
	Timeout time.Duration

	// MaxPixels skips images whose original width*height is larger.
	MaxPixels int

	// MaxDimension is the longest side after preprocessing.
	MaxDimension int

	// DisablePreprocess hands the original image to tesseract unchanged.
	DisablePreprocess bool

	// TempDir is the parent of the per-call directories; empty uses os.TempDir.
	TempDir string

	// ExtraArgs are appended to the command line, e.g. --psm 6.
	ExtraArgs []string

	// WaitDelay bounds how long a killed process may hold its output pipes.
	WaitDelay time.Duration
}

// Tesseract runs the tesseract binary once per image.
type Tesseract struct {
	cfg TesseractConfig
}

var _ driven.OCREngine = (*Tesseract)(nil)

// NewTesseract creates a subprocess engine, filling in defaults.
func NewTesseract(cfg TesseractConfig) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = DefaultBinary
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = DefaultMaxPixels
	}
	if cfg.MaxDimension <= 0 {
		cfg.MaxDimension = DefaultMaxDimension
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = DefaultWaitDelay
	}
	return &Tesseract{cfg: cfg}
}

// Name identifies the engine.
func (t *Tesseract) Name() string { return "tesseract" }

// Available reports whether the binary can be found.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.cfg.Binary)
	return err == nil
}

// ExtractText returns the recognised text or "" on any failure.
func (t *Tesseract) ExtractText(ctx context.Context, in domain.OCRInput) string {
	text, err := t.Recognize(ctx, in)
	if err != nil {
		logger.Warn("ocr: %v", err)
		return ""
	}
	return text
}

// Recognize runs tesseract and reports why it produced no text.
// Errors wrap domain.ErrImageTooLarge, domain.ErrOCRTimeout or domain.ErrOCRFailure.
//
//nolint:gocyclo // linear sequence of guarded steps
func (t *Tesseract) Recognize(ctx context.Context, in domain.OCRInput) (string, error) {
	if in.Empty() {
		return "", fmt.Errorf("%w: empty input", domain.ErrOCRFailure)
	}

	w, h, err := Dimensions(in)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrOCRFailure, err)
	}
	if w*h > t.cfg.MaxPixels {
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", domain.ErrImageTooLarge, w, h, t.cfg.MaxPixels)
	}

	dir, err := os.MkdirTemp(t.cfg.TempDir, "pdfsearch-ocr-*")
	if err != nil {
		return "", fmt.Errorf("%w: creating temp dir: %v", domain.ErrOCRFailure, err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("ocr: removing %s: %v", dir, err)
		}
	}()

	input, err := t.prepareInput(dir, in)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrOCRFailure, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	outBase := filepath.Join(dir, "output")
	args := []string{input, outBase, "-l", strings.Join(t.cfg.Languages, "+")}
	args = append(args, t.cfg.ExtraArgs...)

	cmd := exec.CommandContext(runCtx, t.cfg.Binary, args...) //nolint:gosec // binary comes from configuration
	cmd.WaitDelay = t.cfg.WaitDelay
	var stderr bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderr, n: 4096}

	start := time.Now()
	runErr := cmd.Run()
	logger.Debug("ocr: tesseract %dx%d took %s", w, h, time.Since(start).Round(time.Millisecond))

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return "", fmt.Errorf("%w after %s", domain.ErrOCRTimeout, t.cfg.Timeout)
	}
	if runErr != nil {
		return "", fmt.Errorf("%w: %v: %s", domain.ErrOCRFailure, runErr, strings.TrimSpace(stderr.String()))
	}

	out, err := os.ReadFile(outBase + ".txt")
	if err != nil {
		return "", fmt.Errorf("%w: reading output: %v", domain.ErrOCRFailure, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// prepareInput returns the path tesseract should read. Caller-supplied
// paths are used in place when no preprocessing is needed; everything else
// is written into dir, which the caller removes.
func (t *Tesseract) prepareInput(dir string, in domain.OCRInput) (string, error) {
	if t.cfg.DisablePreprocess {
		switch {
		case len(in.Data) > 0:
			return writePrivate(filepath.Join(dir, "input.img"), in.Data)
		case in.Image == nil && in.Path != "":
			return in.Path, nil
		}
	}

	img, err := Decode(in)
	if err != nil {
		return "", fmt.Errorf("decoding image: %w", err)
	}
	if !t.cfg.DisablePreprocess {
		img = Preprocess(img, t.cfg.MaxDimension)
	}
	data, err := EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("encoding image: %w", err)
	}
	return writePrivate(filepath.Join(dir, "input.png"), data)
}

// writePrivate creates path exclusively with owner-only permissions.
func writePrivate(path string, data []byte) (string, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}

// limitedWriter keeps at most n bytes and discards the rest.
type limitedWriter struct {
	w *bytes.Buffer
	n int
}

func (l *limitedWriter) Write(p []byte) (int, error) {
	if room := l.n - l.w.Len(); room > 0 {
		if len(p) > room {
			l.w.Write(p[:room])
		} else {
			l.w.Write(p)
		}
	}
	return len(p), nil
}
