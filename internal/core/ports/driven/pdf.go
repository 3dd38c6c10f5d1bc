package driven

import "github.com/custodia-labs/pdfsearch/internal/core/domain"

// PDFDecoder opens PDF files for extraction.
type PDFDecoder interface {
	// Open parses the file at path.
	Open(path string) (PDFDocument, error)
}

// PDFDocument is an opened PDF. Page numbers are 1-based.
type PDFDocument interface {
	// PageCount returns the number of pages.
	PageCount() int

	// PageText extracts the plain text of a page.
	PageText(page int) (string, error)

	// PageImages extracts the embedded images of a page.
	PageImages(page int) ([]domain.PageImage, error)

	// Close releases the underlying file.
	Close() error
}
