package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
)

// --- Mock implementations ---

// fakePDF is the content a fakeDecoder returns for one path.
type fakePDF struct {
	pages    []string
	images   map[int][]domain.PageImage
	textErr  map[int]error
	imageErr map[int]error
}

// fakeDecoder implements driven.PDFDecoder from an in-memory table.
type fakeDecoder struct {
	mu      sync.Mutex
	docs    map[string]fakePDF
	openErr map[string]error
	delay   time.Duration

	opens      atomic.Int32
	active     atomic.Int32
	maxActive  atomic.Int32
	closeCount atomic.Int32
}

func newFakeDecoder() *fakeDecoder {
	return &fakeDecoder{
		docs:    make(map[string]fakePDF),
		openErr: make(map[string]error),
	}
}

func (d *fakeDecoder) add(path string, doc fakePDF) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs[path] = doc
}

func (d *fakeDecoder) Open(path string) (driven.PDFDocument, error) {
	d.opens.Add(1)
	d.mu.Lock()
	doc, ok := d.docs[path]
	err := d.openErr[path]
	d.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("no pages")
	}

	n := d.active.Add(1)
	for {
		cur := d.maxActive.Load()
		if n <= cur || d.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	return &fakeDocument{fakePDF: doc, decoder: d}, nil
}

type fakeDocument struct {
	fakePDF
	decoder *fakeDecoder
}

func (f *fakeDocument) PageCount() int { return len(f.pages) }

func (f *fakeDocument) PageText(page int) (string, error) {
	if err := f.textErr[page]; err != nil {
		return "", err
	}
	return f.pages[page-1], nil
}

func (f *fakeDocument) PageImages(page int) ([]domain.PageImage, error) {
	if err := f.imageErr[page]; err != nil {
		return nil, err
	}
	return f.images[page], nil
}

func (f *fakeDocument) Close() error {
	f.decoder.active.Add(-1)
	f.decoder.closeCount.Add(1)
	return nil
}

// fakeOCR implements driven.OCREngine by echoing the image bytes.
type fakeOCR struct {
	calls atomic.Int32
}

func (o *fakeOCR) ExtractText(_ context.Context, in domain.OCRInput) string {
	o.calls.Add(1)
	return string(in.Data)
}

func (o *fakeOCR) Name() string { return "fake" }

// mapCache implements TextCache.
type mapCache struct {
	mu   sync.Mutex
	data map[string]string
	puts int
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]string)}
}

func (c *mapCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok
}

func (c *mapCache) Put(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.puts++
	c.data[key] = value
}

// fakeProbe implements driven.MemoryProbe with a fixed sample.
type fakeProbe struct {
	sample  driven.MemorySample
	samples atomic.Int32
}

func (p *fakeProbe) Sample() (driven.MemorySample, error) {
	p.samples.Add(1)
	return p.sample, nil
}

// writePDF creates a file with a PDF signature and returns its path.
func writePDF(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n% test fixture\n%%EOF\n"), 0o600))
	return path
}

// pagesOf returns n page texts "page 1", "page 2", ...
func pagesOf(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("page %d", i+1)
	}
	return out
}
