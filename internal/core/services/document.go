package services

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService gives read access to ingested documents.
type DocumentService struct {
	docStore driven.DocumentStore

	// onDelete runs after a document is removed.
	onDelete func()

	// open launches the system viewer; replaced in tests.
	open func(path string) error
}

// NewDocumentService creates a new document service. onDelete may be nil.
func NewDocumentService(docStore driven.DocumentStore, onDelete func()) *DocumentService {
	return &DocumentService{
		docStore: docStore,
		onDelete: onDelete,
		open:     openPath,
	}
}

// GetDocumentPath returns the path a document was ingested from.
func (s *DocumentService) GetDocumentPath(ctx context.Context, id int64) (string, error) {
	if s.docStore == nil {
		return "", domain.ErrNotImplemented
	}
	return s.docStore.GetPath(ctx, id)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, id int64) (*domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.GetDocument(ctx, id)
}

// List returns all documents.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.ListDocuments(ctx)
}

// Delete removes a document and everything derived from it.
func (s *DocumentService) Delete(ctx context.Context, id int64) error {
	if s.docStore == nil {
		return domain.ErrNotImplemented
	}
	if err := s.docStore.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if s.onDelete != nil {
		s.onDelete()
	}
	return nil
}

// Stats summarises the store.
func (s *DocumentService) Stats(ctx context.Context) (domain.StoreStats, error) {
	if s.docStore == nil {
		return domain.StoreStats{}, domain.ErrNotImplemented
	}
	return s.docStore.Stats(ctx)
}

// Open opens the document's file in the default application.
func (s *DocumentService) Open(ctx context.Context, id int64) error {
	path, err := s.GetDocumentPath(ctx, id)
	if err != nil {
		return err
	}
	return s.open(path)
}

// openPath opens a path using the system default handler.
func openPath(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
