package domain

import (
	"fmt"
	"time"
)

// DocumentStatus tracks whether ingestion of a document finished.
type DocumentStatus string

const (
	// StatusPending marks a document whose pages are still being written.
	// A pending document found on startup is the remains of an interrupted run.
	StatusPending DocumentStatus = "pending"

	// StatusComplete marks a document whose pages and images were all persisted.
	StatusComplete DocumentStatus = "complete"
)

// Document is an ingested PDF.
// The (Name, Path) pair is unique across the store.
type Document struct {
	// ID is assigned by the store on insert.
	ID int64

	// Name is the file name without its extension.
	Name string

	// Path is the location the document was ingested from.
	Path string

	// Status reports whether ingestion completed.
	Status DocumentStatus

	// CreatedAt is when the document row was inserted.
	CreatedAt time.Time

	// LastAccessed is bumped whenever the document appears in search results.
	LastAccessed time.Time
}

// PageText is the plain text of one page. PageNumber is 1-based.
type PageText struct {
	DocumentID int64
	PageNumber int
	Text       string
}

// ImageRecord is the metadata of an embedded image.
// Raw image bytes are never persisted.
type ImageRecord struct {
	DocumentID int64
	PageNumber int
	Name       string
	Ext        string
}

// OCRText is text recognised in one embedded image of a page.
type OCRText struct {
	DocumentID int64
	PageNumber int
	Text       string
}

// PageImage is an image extracted from a page, ready for OCR.
type PageImage struct {
	// Index is the 1-based position of the image on its page.
	Index int

	// Data holds the encoded image bytes.
	Data []byte

	// Ext is the image file extension without a dot (png, jpg, tif).
	Ext string
}

// ImageName returns the stored name of the image at index on page.
func ImageName(page, index int) string {
	return fmt.Sprintf("image_page%d_%d", page, index)
}

// StoreStats summarises the contents of the document store.
type StoreStats struct {
	Documents int
	Pending   int
	Pages     int
	Images    int
	OCRTexts  int
}
