package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driving"
	"github.com/custodia-labs/pdfsearch/internal/logger"
	"github.com/custodia-labs/pdfsearch/internal/memory"
	"github.com/custodia-labs/pdfsearch/internal/security"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// Ingestion defaults.
const (
	DefaultMaxWorkers              = 5
	DefaultMaxFileBytes            = 512 * 1024 * 1024
	DefaultStreamingThresholdBytes = 50 * 1024 * 1024
	DefaultWindowPages             = 5
)

// TextCache holds OCR results between runs. Implemented by cache.Tiered.
type TextCache interface {
	Get(key string) (string, bool)
	Put(key, value string)
}

// IngestOptions tunes an IngestService. Zero values select the defaults.
type IngestOptions struct {
	// MaxWorkers bounds concurrent documents in IngestFolder.
	MaxWorkers int

	// MaxFileBytes rejects larger files during validation. Negative disables the check.
	MaxFileBytes int64

	// StreamingThresholdBytes is the file size above which pages are
	// processed in windows with a collection between windows.
	StreamingThresholdBytes int64

	// WindowPages is the number of pages per streaming window.
	WindowPages int

	// OCRCache stores recognised text keyed by path, page and image index.
	OCRCache TextCache

	// Guard forces a collection before a window when memory is short.
	Guard *memory.Guard

	// OnIngested runs after each document completes, typically to
	// invalidate cached search results.
	OnIngested func()
}

func (o IngestOptions) withDefaults() IngestOptions {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = DefaultMaxWorkers
	}
	if o.MaxFileBytes == 0 {
		o.MaxFileBytes = DefaultMaxFileBytes
	}
	if o.StreamingThresholdBytes <= 0 {
		o.StreamingThresholdBytes = DefaultStreamingThresholdBytes
	}
	if o.WindowPages <= 0 {
		o.WindowPages = DefaultWindowPages
	}
	return o
}

// IngestService extracts page text and OCR text from PDFs into the store.
type IngestService struct {
	store   driven.DocumentStore
	decoder driven.PDFDecoder
	ocr     driven.OCREngine
	opts    IngestOptions

	// collect runs between streaming windows.
	collect func() float64
}

// NewIngestService creates a new ingestion service.
func NewIngestService(
	store driven.DocumentStore,
	decoder driven.PDFDecoder,
	ocr driven.OCREngine,
	opts IngestOptions,
) *IngestService {
	return &IngestService{
		store:   store,
		decoder: decoder,
		ocr:     ocr,
		opts:    opts.withDefaults(),
		collect: memory.ForceGC,
	}
}

// DocumentName returns the name a file is stored under: its base name
// without the extension.
func DocumentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ingestRun carries the state of one document through the pipeline.
type ingestRun struct {
	path   string
	result *domain.IngestResult
}

// enter records state once; windows revisit states without repeating them.
func (r *ingestRun) enter(state domain.IngestState) {
	if slices.Contains(r.result.Trace, state) {
		r.result.State = state
		return
	}
	r.result.Transition(state)
}

// IngestDocument ingests one PDF and reports the outcome.
func (s *IngestService) IngestDocument(ctx context.Context, path string) (result domain.IngestResult) {
	start := time.Now()
	result = domain.IngestResult{Path: path}
	result.Transition(domain.StatePending)
	defer func() {
		result.Duration = time.Since(start)
		if result.State == domain.StateFailed {
			logger.Warn("ingest %s failed: %v", path, result.Err)
		} else {
			logger.Info("ingest %s: %s in %s", path, result.State, result.Duration.Round(time.Millisecond))
		}
	}()
	run := &ingestRun{path: path, result: &result}

	run.enter(domain.StateValidating)
	if err := ctx.Err(); err != nil {
		result.Fail(err)
		return result
	}
	if err := s.validate(path); err != nil {
		result.Fail(err)
		return result
	}

	name := DocumentName(path)
	processed, err := s.store.IsProcessed(ctx, name, path)
	if err != nil {
		result.Fail(err)
		return result
	}
	if processed {
		run.enter(domain.StateSkipped)
		return result
	}
	if err := s.dropLeftover(ctx, name, path); err != nil {
		result.Fail(err)
		return result
	}

	id, err := s.store.InsertDocument(ctx, name, path)
	if errors.Is(err, domain.ErrDuplicateDocument) {
		// Another worker inserted the same pair first.
		run.enter(domain.StateSkipped)
		return result
	}
	if err != nil {
		result.Fail(err)
		return result
	}
	result.DocumentID = id

	if err := s.process(ctx, run); err != nil {
		s.abandon(ctx, id)
		result.Fail(err)
		return result
	}

	if err := s.store.MarkComplete(ctx, id); err != nil {
		s.abandon(ctx, id)
		result.Fail(err)
		return result
	}
	if s.opts.OnIngested != nil {
		s.opts.OnIngested()
	}
	run.enter(domain.StateDone)
	return result
}

// validate rejects paths that are not readable PDFs within the size limit.
func (s *IngestService) validate(path string) error {
	if err := security.ValidatePDFFile(path); err != nil {
		return err
	}
	return security.ValidateFileSize(path, s.opts.MaxFileBytes)
}

// dropLeftover deletes a pending document left by an interrupted run.
func (s *IngestService) dropLeftover(ctx context.Context, name, path string) error {
	doc, err := s.store.FindDocument(ctx, name, path)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if doc.Status != domain.StatusPending {
		return nil
	}
	logger.Info("removing incomplete ingestion of %s (document %d)", path, doc.ID)
	if err := s.store.DeleteDocument(ctx, doc.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	return nil
}

// abandon removes a partially written document. A failed removal leaves it
// pending, and the next ingestion of the path removes it.
func (s *IngestService) abandon(ctx context.Context, id int64) {
	if err := s.store.DeleteDocument(context.WithoutCancel(ctx), id); err != nil {
		logger.Warn("removing partial document %d: %v", id, err)
	}
}

// process extracts and persists every page, in windows when the file is large.
func (s *IngestService) process(ctx context.Context, run *ingestRun) error {
	run.enter(domain.StateExtracting)
	doc, err := s.decoder.Open(run.path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", run.path, err)
	}
	defer doc.Close()

	pages := doc.PageCount()
	window := pages
	if s.streaming(run.path) {
		run.result.Streamed = true
		window = s.opts.WindowPages
		logger.Info("streaming %s: %d pages in windows of %d", run.path, pages, window)
	}

	for first := 1; first <= pages; first += window {
		last := min(first+window-1, pages)
		label := fmt.Sprintf("%s pages %d-%d", filepath.Base(run.path), first, last)
		if run.result.Streamed && first > 1 {
			freed := s.collect()
			logger.Debug("window %s: collected %.1fMB", label, freed)
		}
		s.opts.Guard.Check(label)

		if err := s.processWindow(ctx, run, doc, first, last); err != nil {
			return err
		}
		if run.result.Streamed {
			memory.LogUsage(label)
		}
	}

	run.enter(domain.StateCached)
	return nil
}

func (s *IngestService) streaming(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() > s.opts.StreamingThresholdBytes
}

// processWindow handles pages first through last: text is extracted for the
// whole window, persisted, then the images of each page are recorded and
// run through OCR.
func (s *IngestService) processWindow(
	ctx context.Context, run *ingestRun, doc driven.PDFDocument, first, last int,
) error {
	run.enter(domain.StateExtracting)
	texts := make([]string, 0, last-first+1)
	for page := first; page <= last; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		text, err := doc.PageText(page)
		if err != nil {
			// The page still gets a row so page numbers stay contiguous.
			logger.Warn("extracting text of %s page %d: %v", run.path, page, err)
		}
		texts = append(texts, text)
	}

	run.enter(domain.StatePersistingText)
	for i, text := range texts {
		if err := s.store.InsertPageText(ctx, run.result.DocumentID, first+i, text); err != nil {
			return err
		}
		run.result.Pages++
	}

	run.enter(domain.StateProcessingImages)
	for page := first; page <= last; page++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.processImages(ctx, run, doc, page); err != nil {
			return err
		}
	}
	return nil
}

func (s *IngestService) processImages(ctx context.Context, run *ingestRun, doc driven.PDFDocument, page int) error {
	images, err := doc.PageImages(page)
	if err != nil {
		logger.Warn("extracting images of %s page %d: %v", run.path, page, err)
		return nil
	}
	id := run.result.DocumentID
	for _, img := range images {
		name := security.SanitizeFilename(domain.ImageName(page, img.Index))
		if err := s.store.InsertImageMetadata(ctx, id, page, name, img.Ext); err != nil {
			return err
		}
		run.result.Images++

		text := s.recognise(ctx, run.path, page, img)
		if text == "" {
			continue
		}
		if err := s.store.InsertOCRText(ctx, id, page, text); err != nil {
			return err
		}
		run.result.OCRTexts++
	}
	return nil
}

// recognise returns the OCR text of img, from the cache when possible.
func (s *IngestService) recognise(ctx context.Context, path string, page int, img domain.PageImage) string {
	key := OCRCacheKey(path, page, img.Index)
	if s.opts.OCRCache != nil {
		if text, ok := s.opts.OCRCache.Get(key); ok {
			logger.Debug("ocr cache hit %s", key)
			return text
		}
	}
	if s.ocr == nil {
		return ""
	}
	text := s.ocr.ExtractText(ctx, domain.OCRInput{Data: img.Data})
	if text != "" && s.opts.OCRCache != nil {
		s.opts.OCRCache.Put(key, text)
	}
	return text
}

// OCRCacheKey identifies the OCR result of one image.
func OCRCacheKey(path string, page, index int) string {
	return fmt.Sprintf("%s|%d|%d", path, page, index)
}
