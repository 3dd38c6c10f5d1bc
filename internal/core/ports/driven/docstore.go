package driven

import (
	"context"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

// DocumentStore persists ingested documents and serves full-text search.
// Every page and OCR text write is mirrored into the full-text index in the
// same transaction. Backed by SQLite.
type DocumentStore interface {
	// InsertDocument creates a pending document and returns its ID.
	// Returns domain.ErrDuplicateDocument if (name, path) already exists.
	InsertDocument(ctx context.Context, name, path string) (int64, error)

	// IsProcessed reports whether a complete document with (name, path) exists.
	IsProcessed(ctx context.Context, name, path string) (bool, error)

	// FindDocument returns the document with (name, path) in any status.
	// Returns domain.ErrNotFound if absent.
	FindDocument(ctx context.Context, name, path string) (*domain.Document, error)

	// MarkComplete flags a document as fully ingested.
	MarkComplete(ctx context.Context, id int64) error

	// DeleteDocument removes a document, its pages, images, OCR text and index entries.
	DeleteDocument(ctx context.Context, id int64) error

	// InsertPageText stores the text of one page and indexes it.
	InsertPageText(ctx context.Context, docID int64, page int, text string) error

	// InsertImageMetadata records an embedded image.
	InsertImageMetadata(ctx context.Context, docID int64, page int, name, ext string) error

	// InsertOCRText stores recognised text of one image and indexes it.
	InsertOCRText(ctx context.Context, docID int64, page int, text string) error

	// GetPath returns the source path of a document.
	// Returns domain.ErrNotFound if the document does not exist.
	GetPath(ctx context.Context, id int64) (string, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id int64) (*domain.Document, error)

	// ListDocuments returns all documents ordered by ID.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// Search returns matching pages ordered by last access, most recent first.
	// Storage failures are logged and produce an empty slice.
	// Documents in the returned prefix have their last access bumped.
	Search(ctx context.Context, term string, useIndex bool, limit, offset int) []domain.SearchHit

	// Count returns the total number of hits Search would page through.
	// It never mutates last access times.
	Count(ctx context.Context, term string, useIndex bool) int

	// Stats summarises the store contents.
	Stats(ctx context.Context) (domain.StoreStats, error)
}
