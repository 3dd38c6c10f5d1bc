package services

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/pdfsearch/internal/cache"
	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driving"
	"github.com/custodia-labs/pdfsearch/internal/logger"
	"github.com/custodia-labs/pdfsearch/internal/security"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// Page size bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// maxCachedQueries bounds each result cache.
const maxCachedQueries = 500

type pageKey struct {
	term     string
	useIndex bool
	page     int
	pageSize int
}

type countKey struct {
	term     string
	useIndex bool
}

// SearchService pages through store hits, caching pages and totals for a
// short time. Cached pages do not bump document access times.
type SearchService struct {
	docStore driven.DocumentStore
	pages    *cache.TTLCache[pageKey, []domain.SearchHit]
	counts   *cache.TTLCache[countKey, int]
}

// NewSearchService creates a new search service whose results live for ttl
// (cache.DefaultTTL if <= 0).
func NewSearchService(docStore driven.DocumentStore, ttl time.Duration, opts ...cache.TTLOption) *SearchService {
	opts = append([]cache.TTLOption{cache.WithMaxItems(maxCachedQueries)}, opts...)
	return &SearchService{
		docStore: docStore,
		pages:    cache.NewTTLCache[pageKey, []domain.SearchHit](ttl, opts...),
		counts:   cache.NewTTLCache[countKey, int](ttl, opts...),
	}
}

// Search returns one page of hits. The page number is clamped into the
// available range and the page size into [1, MaxPageSize].
func (s *SearchService) Search(ctx context.Context, q domain.SearchQuery) domain.SearchPage {
	q.PageSize = clampPageSize(q.PageSize)
	q.Term = security.SanitizeSearchTerm(q.Term)
	result := domain.SearchPage{Hits: []domain.SearchHit{}, Page: 1, PageSize: q.PageSize}
	if q.Term == "" || s.docStore == nil {
		return result
	}

	ck := countKey{term: q.Term, useIndex: q.UseIndex}
	total, ok := s.counts.Get(ck)
	if !ok {
		total = s.docStore.Count(ctx, q.Term, q.UseIndex)
		s.counts.Put(ck, total)
	}
	result.Total = total
	if total == 0 {
		return result
	}

	q.Page = security.ValidatePageNumber(q.Page, result.TotalPages())
	result.Page = q.Page

	pk := pageKey{term: q.Term, useIndex: q.UseIndex, page: q.Page, pageSize: q.PageSize}
	if hits, ok := s.pages.Get(pk); ok {
		logger.Debug("search %q page %d: cached", q.Term, q.Page)
		result.Hits = hits
		return result
	}

	start := time.Now()
	hits := s.docStore.Search(ctx, q.Term, q.UseIndex, q.PageSize, q.Offset())
	logger.Elapsed(fmt.Sprintf("search %q page %d", q.Term, q.Page), start)
	if len(hits) > 0 {
		s.pages.Put(pk, hits)
	}
	result.Hits = hits
	return result
}

func clampPageSize(n int) int {
	switch {
	case n <= 0:
		return DefaultPageSize
	case n > MaxPageSize:
		return MaxPageSize
	}
	return n
}

// Invalidate drops every cached page and total.
func (s *SearchService) Invalidate() {
	s.pages.Clear()
	s.counts.Clear()
}

// CacheStats reports the combined page and total cache statistics.
func (s *SearchService) CacheStats() domain.CacheStats {
	p, c := s.pages.Stats(), s.counts.Stats()
	return domain.CacheStats{
		Items:     p.Items + c.Items,
		Bytes:     p.Bytes + c.Bytes,
		Hits:      p.Hits + c.Hits,
		Misses:    p.Misses + c.Misses,
		Evictions: p.Evictions + c.Evictions,
	}
}
