package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memstore "github.com/custodia-labs/pdfsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/memory"
)

func newTestIngest(store *memstore.DocumentStore, decoder *fakeDecoder, ocr driven.OCREngine, opts IngestOptions) *IngestService {
	svc := NewIngestService(store, decoder, ocr, opts)
	svc.collect = func() float64 { return 0 }
	return svc
}

func TestNewIngestService_Defaults(t *testing.T) {
	svc := NewIngestService(memstore.NewDocumentStore(), newFakeDecoder(), nil, IngestOptions{})

	assert.Equal(t, DefaultMaxWorkers, svc.opts.MaxWorkers)
	assert.Equal(t, int64(DefaultMaxFileBytes), svc.opts.MaxFileBytes)
	assert.Equal(t, int64(DefaultStreamingThresholdBytes), svc.opts.StreamingThresholdBytes)
	assert.Equal(t, DefaultWindowPages, svc.opts.WindowPages)
}

func TestDocumentName(t *testing.T) {
	assert.Equal(t, "report", DocumentName("/docs/report.pdf"))
	assert.Equal(t, "Scan.2024", DocumentName("Scan.2024.PDF"))
	assert.Equal(t, "plain", DocumentName("plain"))
}

func TestOCRCacheKey(t *testing.T) {
	assert.Equal(t, "/a/b.pdf|3|2", OCRCacheKey("/a/b.pdf", 3, 2))
}

func TestIngestDocument_PagesAndOCR(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writePDF(t, dir, "report.pdf")

	decoder := newFakeDecoder()
	decoder.add(path, fakePDF{
		pages: []string{"Hello world", "Second page"},
		images: map[int][]domain.PageImage{
			2: {
				{Index: 1, Data: []byte("Invoice 42"), Ext: "png"},
				{Index: 2, Data: nil, Ext: "jpg"},
			},
		},
	})
	store := memstore.NewDocumentStore()
	ocr := &fakeOCR{}
	invalidated := 0
	svc := newTestIngest(store, decoder, ocr, IngestOptions{OnIngested: func() { invalidated++ }})

	result := svc.IngestDocument(ctx, path)

	require.NoError(t, result.Err)
	assert.Equal(t, domain.StateDone, result.State)
	assert.Equal(t, []domain.IngestState{
		domain.StatePending,
		domain.StateValidating,
		domain.StateExtracting,
		domain.StatePersistingText,
		domain.StateProcessingImages,
		domain.StateCached,
		domain.StateDone,
	}, result.Trace)
	assert.Equal(t, 2, result.Pages)
	assert.Equal(t, 2, result.Images)
	assert.Equal(t, 1, result.OCRTexts)
	assert.False(t, result.Streamed)
	assert.Equal(t, 1, invalidated)
	assert.Equal(t, int32(1), decoder.closeCount.Load())

	doc, err := store.GetDocument(ctx, result.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "report", doc.Name)
	assert.Equal(t, path, doc.Path)
	assert.Equal(t, domain.StatusComplete, doc.Status)

	pages := store.Pages(result.DocumentID)
	require.Len(t, pages, 2)
	assert.Equal(t, 1, pages[0].PageNumber)
	assert.Equal(t, "Hello world", pages[0].Text)
	assert.Equal(t, "Second page", pages[1].Text)

	images := store.Images(result.DocumentID)
	require.Len(t, images, 2)
	assert.Equal(t, "image_page2_1", images[0].Name)
	assert.Equal(t, "png", images[0].Ext)
	assert.Equal(t, "image_page2_2", images[1].Name)

	ocrTexts := store.OCRTexts(result.DocumentID)
	require.Len(t, ocrTexts, 1)
	assert.Equal(t, 2, ocrTexts[0].PageNumber)
	assert.Equal(t, "Invoice 42", ocrTexts[0].Text)

	hits := store.Search(ctx, "invoice", true, 10, 0)
	require.Len(t, hits, 1)
	assert.Equal(t, domain.SourceOCRText, hits[0].Source)
	assert.Equal(t, 2, hits[0].PageNumber)
}

func TestIngestDocument_Idempotent(t *testing.T) {
	ctx := context.Background()
	path := writePDF(t, t.TempDir(), "a.pdf")
	decoder := newFakeDecoder()
	decoder.add(path, fakePDF{pages: pagesOf(3)})
	store := memstore.NewDocumentStore()
	svc := newTestIngest(store, decoder, &fakeOCR{}, IngestOptions{})

	first := svc.IngestDocument(ctx, path)
	require.Equal(t, domain.StateDone, first.State)

	second := svc.IngestDocument(ctx, path)
	assert.Equal(t, domain.StateSkipped, second.State)
	assert.True(t, second.Succeeded())
	assert.Equal(t, []domain.IngestState{
		domain.StatePending, domain.StateValidating, domain.StateSkipped,
	}, second.Trace)
	assert.Equal(t, int32(1), decoder.opens.Load(), "skipped documents are not reopened")

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Documents)
	assert.Equal(t, 3, st.Pages)
}

func TestIngestDocument_ReplacesPendingLeftover(t *testing.T) {
	ctx := context.Background()
	path := writePDF(t, t.TempDir(), "crashed.pdf")
	store := memstore.NewDocumentStore()

	// Remains of an interrupted run: pending, one of two pages written.
	oldID, err := store.InsertDocument(ctx, "crashed", path)
	require.NoError(t, err)
	require.NoError(t, store.InsertPageText(ctx, oldID, 1, "stale"))

	decoder := newFakeDecoder()
	decoder.add(path, fakePDF{pages: []string{"fresh one", "fresh two"}})
	svc := newTestIngest(store, decoder, &fakeOCR{}, IngestOptions{})

	result := svc.IngestDocument(ctx, path)

	require.Equal(t, domain.StateDone, result.State)
	assert.NotEqual(t, oldID, result.DocumentID)
	_, err = store.GetDocument(ctx, oldID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, store.Count(ctx, "stale", true))
	assert.Len(t, store.Pages(result.DocumentID), 2)
}

func TestIngestDocument_ValidationFailures(t *testing.T) {
	dir := t.TempDir()
	notPDF := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notPDF, []byte("%PDF-1.4"), 0o600))
	noMagic := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(noMagic, []byte("GIF89a...."), 0o600))
	big := writePDF(t, dir, "big.pdf")

	tests := []struct {
		name string
		path string
	}{
		{"missing file", filepath.Join(dir, "missing.pdf")},
		{"directory", dir},
		{"wrong extension", notPDF},
		{"bad signature", noMagic},
		{"too large", big},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.NewDocumentStore()
			decoder := newFakeDecoder()
			svc := newTestIngest(store, decoder, &fakeOCR{}, IngestOptions{MaxFileBytes: 10})

			result := svc.IngestDocument(context.Background(), tt.path)

			assert.Equal(t, domain.StateFailed, result.State)
			assert.ErrorIs(t, result.Err, domain.ErrValidation)
			var verr *domain.ValidationError
			assert.True(t, errors.As(result.Err, &verr))
			assert.Equal(t, int32(0), decoder.opens.Load())

			st, err := store.Stats(context.Background())
			require.NoError(t, err)
			assert.Zero(t, st.Documents, "nothing is written for rejected input")
		})
	}
}

func TestIngestDocument_DecoderFailureRemovesDocument(t *testing.T) {
	ctx := context.Background()
	path := writePDF(t, t.TempDir(), "broken.pdf")
	decoder := newFakeDecoder()
	decoder.openErr[path] = errors.New("malformed xref")
	store := memstore.NewDocumentStore()
	invalidated := 0
	svc := newTestIngest(store, decoder, &fakeOCR{}, IngestOptions{OnIngested: func() { invalidated++ }})

	result := svc.IngestDocument(ctx, path)

	assert.Equal(t, domain.StateFailed, result.State)
	assert.ErrorContains(t, result.Err, "malformed xref")
	assert.Equal(t, domain.StateExtracting, result.Trace[len(result.Trace)-2])
	assert.Zero(t, invalidated)

	st, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Documents)
}

func TestIngestDocument_PageErrorsDegrade(t *testing.T) {
	ctx := context.Background()
	path := writePDF(t, t.TempDir(), "partial.pdf")
	decoder := newFakeDecoder()
	decoder.add(path, fakePDF{
		pages:    []string{"one", "two", "three"},
		textErr:  map[int]error{2: errors.New("bad content stream")},
		imageErr: map[int]error{3: errors.New("bad image")},
	})
	store := memstore.NewDocumentStore()
	svc := newTestIngest(store, decoder, &fakeOCR{}, IngestOptions{})

	result := svc.IngestDocument(ctx, path)

	require.Equal(t, domain.StateDone, result.State)
	pages := store.Pages(result.DocumentID)
	require.Len(t, pages, 3)
	assert.Equal(t, 2, pages[1].PageNumber)
	assert.Empty(t, pages[1].Text)
}

func TestIngestDocument_Cancelled(t *testing.T) {
	path := writePDF(t, t.TempDir(), "a.pdf")
	decoder := newFakeDecoder()
	decoder.add(path, fakePDF{pages: pagesOf(2)})
	store := memstore.NewDocumentStore()
	svc := newTestIngest(store, decoder, &fakeOCR{}, IngestOptions{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := svc.IngestDocument(ctx, path)

	assert.Equal(t, domain.StateFailed, result.State)
	assert.ErrorIs(t, result.Err, context.Canceled)
	st, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, st.Documents)
}

func TestIngestDocument_OCRCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := writePDF(t, dir, "scan.pdf")
	images := map[int][]domain.PageImage{1: {{Index: 1, Data: []byte("scanned words"), Ext: "png"}}}
	decoder := newFakeDecoder()
	decoder.add(path, fakePDF{pages: []string{""}, images: images})

	textCache := newMapCache()
	ocr := &fakeOCR{}

	svc := newTestIngest(memstore.NewDocumentStore(), decoder, ocr, IngestOptions{OCRCache: textCache})
	require.Equal(t, domain.StateDone, svc.IngestDocument(ctx, path).State)
	assert.Equal(t, int32(1), ocr.calls.Load())
	cached, ok := textCache.Get(OCRCacheKey(path, 1, 1))
	require.True(t, ok)
	assert.Equal(t, "scanned words", cached)

	// A fresh store, as after deleting the index, reuses the cached text.
	store := memstore.NewDocumentStore()
	svc = newTestIngest(store, decoder, ocr, IngestOptions{OCRCache: textCache})
	result := svc.IngestDocument(ctx, path)
	require.Equal(t, domain.StateDone, result.State)
	assert.Equal(t, int32(1), ocr.calls.Load())
	assert.Equal(t, 1, result.OCRTexts)
	assert.Equal(t, 1, store.Count(ctx, "scanned", true))
}

func TestIngestDocument_EmptyOCRNotCached(t *testing.T) {
	path := writePDF(t, t.TempDir(), "blank.pdf")
	decoder := newFakeDecoder()
	decoder.add(path, fakePDF{
		pages:  []string{"text"},
		images: map[int][]domain.PageImage{1: {{Index: 1, Data: nil, Ext: "png"}}},
	})
	textCache := newMapCache()
	svc := newTestIngest(memstore.NewDocumentStore(), decoder, &fakeOCR{}, IngestOptions{OCRCache: textCache})

	result := svc.IngestDocument(context.Background(), path)

	require.Equal(t, domain.StateDone, result.State)
	assert.Zero(t, result.OCRTexts)
	assert.Zero(t, textCache.puts)
}

func TestIngestDocument_NilOCREngine(t *testing.T) {
	path := writePDF(t, t.TempDir(), "img.pdf")
	decoder := newFakeDecoder()
	decoder.add(path, fakePDF{
		pages:  []string{"text"},
		images: map[int][]domain.PageImage{1: {{Index: 1, Data: []byte("words"), Ext: "png"}}},
	})
	svc := newTestIngest(memstore.NewDocumentStore(), decoder, nil, IngestOptions{})

	result := svc.IngestDocument(context.Background(), path)

	require.Equal(t, domain.StateDone, result.State)
	assert.Equal(t, 1, result.Images)
	assert.Zero(t, result.OCRTexts)
}

func TestIngestDocument_Streaming(t *testing.T) {
	ctx := context.Background()
	path := writePDF(t, t.TempDir(), "large.pdf")
	decoder := newFakeDecoder()
	decoder.add(path, fakePDF{pages: pagesOf(5)})
	store := memstore.NewDocumentStore()
	probe := &fakeProbe{sample: driven.MemorySample{UsedPercent: 10}}

	svc := newTestIngest(store, decoder, &fakeOCR{}, IngestOptions{
		StreamingThresholdBytes: 8,
		WindowPages:             2,
		Guard:                   memory.NewGuard(probe, 80),
	})
	collections := 0
	svc.collect = func() float64 { collections++; return 0 }

	result := svc.IngestDocument(ctx, path)

	require.Equal(t, domain.StateDone, result.State)
	assert.True(t, result.Streamed)
	assert.Equal(t, 5, result.Pages)
	assert.Equal(t, 2, collections, "collection runs between the three windows")
	assert.Equal(t, int32(3), probe.samples.Load(), "memory is checked before every window")
	// windows do not repeat states in the trace
	assert.Len(t, result.Trace, 7)

	pages := store.Pages(result.DocumentID)
	require.Len(t, pages, 5)
	for i, p := range pages {
		assert.Equal(t, i+1, p.PageNumber)
		assert.Equal(t, fmt.Sprintf("page %d", i+1), p.Text)
	}
}

func TestIngestDocument_BelowStreamingThreshold(t *testing.T) {
	path := writePDF(t, t.TempDir(), "small.pdf")
	decoder := newFakeDecoder()
	decoder.add(path, fakePDF{pages: pagesOf(7)})
	svc := newTestIngest(memstore.NewDocumentStore(), decoder, &fakeOCR{}, IngestOptions{WindowPages: 2})
	collections := 0
	svc.collect = func() float64 { collections++; return 0 }

	result := svc.IngestDocument(context.Background(), path)

	require.Equal(t, domain.StateDone, result.State)
	assert.False(t, result.Streamed)
	assert.Zero(t, collections)
}
