package driving

import (
	"context"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

// SearchService provides paginated full-text search to external actors.
type SearchService interface {
	// Search returns one page of hits and the total hit count.
	// It always returns a well-formed page, possibly empty.
	Search(ctx context.Context, q domain.SearchQuery) domain.SearchPage

	// Invalidate drops cached results, typically after ingestion.
	Invalidate()

	// CacheStats reports the result cache statistics.
	CacheStats() domain.CacheStats
}
