package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/custodia-labs/pdfsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pdfsearch/internal/adapters/driving/watch"
	"github.com/custodia-labs/pdfsearch/internal/config"
	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

// --- Mock implementations ---

type mockIngest struct {
	mu          sync.Mutex
	documents   map[string]domain.IngestResult
	batch       domain.BatchResult
	batchErr    error
	folders     []string
	workers     []int
	ingestPaths []string
}

func (m *mockIngest) IngestDocument(_ context.Context, path string) domain.IngestResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingestPaths = append(m.ingestPaths, path)
	if r, ok := m.documents[path]; ok {
		return r
	}
	return domain.IngestResult{Path: path, State: domain.StateDone, Pages: 1}
}

func (m *mockIngest) IngestFolder(_ context.Context, folder string, maxWorkers int) (domain.BatchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.folders = append(m.folders, folder)
	m.workers = append(m.workers, maxWorkers)
	return m.batch, m.batchErr
}

type mockSearch struct {
	page        domain.SearchPage
	queries     []domain.SearchQuery
	invalidated int
	stats       domain.CacheStats
}

func (m *mockSearch) Search(_ context.Context, q domain.SearchQuery) domain.SearchPage {
	m.queries = append(m.queries, q)
	return m.page
}

func (m *mockSearch) Invalidate() { m.invalidated++ }

func (m *mockSearch) CacheStats() domain.CacheStats { return m.stats }

type mockDocuments struct {
	docs    []domain.Document
	stats   domain.StoreStats
	opened  []int64
	deleted []int64
}

func (m *mockDocuments) find(id int64) (*domain.Document, error) {
	for i := range m.docs {
		if m.docs[i].ID == id {
			return &m.docs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocuments) GetDocumentPath(_ context.Context, id int64) (string, error) {
	doc, err := m.find(id)
	if err != nil {
		return "", err
	}
	return doc.Path, nil
}

func (m *mockDocuments) Get(_ context.Context, id int64) (*domain.Document, error) {
	return m.find(id)
}

func (m *mockDocuments) List(context.Context) ([]domain.Document, error) {
	return m.docs, nil
}

func (m *mockDocuments) Delete(_ context.Context, id int64) error {
	if _, err := m.find(id); err != nil {
		return err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDocuments) Stats(context.Context) (domain.StoreStats, error) {
	return m.stats, nil
}

func (m *mockDocuments) Open(_ context.Context, id int64) error {
	if _, err := m.find(id); err != nil {
		return err
	}
	m.opened = append(m.opened, id)
	return nil
}

type mockCache struct {
	mem, disk domain.CacheStats
	cleared   int
	clearErr  error
}

func (m *mockCache) Stats() (mem, disk domain.CacheStats) { return m.mem, m.disk }

func (m *mockCache) Clear() error {
	m.cleared++
	return m.clearErr
}

// testServices bundles the mocks behind the Services under test.
type testServices struct {
	*Services
	ingest    *mockIngest
	search    *mockSearch
	documents *mockDocuments
	cache     *mockCache
	store     *memory.ConfigStore
}

// resetFlags restores every command flag variable to its default.
func resetFlags() {
	verbose = false
	dataDir = ""
	jsonOutput = false
	ingestWorkers = 0
	searchPage = 1
	searchPageSize = 0
	searchSubstring = false
	watchInitial = true
	watchSettle = watch.DefaultSettle
}

// setupTestServices installs mock services for the duration of the test.
func setupTestServices(t *testing.T) *testServices {
	t.Helper()
	cfg := config.Default()
	ts := &testServices{
		ingest:    &mockIngest{documents: make(map[string]domain.IngestResult)},
		search:    &mockSearch{},
		documents: &mockDocuments{},
		cache:     &mockCache{},
		store:     memory.NewConfigStore(),
	}
	ts.Services = &Services{
		Config:      &cfg,
		ConfigStore: ts.store,
		Ingest:      ts.ingest,
		Search:      ts.search,
		Documents:   ts.documents,
		Cache:       ts.cache,
		OCREngine:   "tesseract",
	}

	resetFlags()
	services = ts.Services
	t.Cleanup(func() {
		services = nil
		closeServices = nil
		resetFlags()
	})
	return ts
}

// run executes the root command with args and returns its combined output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runContext(t, context.Background(), args...)
}

func runContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}
