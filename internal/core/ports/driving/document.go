package driving

import (
	"context"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

// DocumentService exposes read access to ingested documents.
type DocumentService interface {
	// GetDocumentPath returns the source path of a document.
	// Returns domain.ErrNotFound when the ID is unknown.
	GetDocumentPath(ctx context.Context, id int64) (string, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, id int64) (*domain.Document, error)

	// List returns all documents.
	List(ctx context.Context) ([]domain.Document, error)

	// Delete removes a document and everything derived from it.
	Delete(ctx context.Context, id int64) error

	// Stats summarises the store.
	Stats(ctx context.Context) (domain.StoreStats, error)

	// Open opens the document file in the system viewer.
	Open(ctx context.Context, id int64) error
}
