// Package domain defines the core business entities for pdfsearch.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An ingested PDF identified by its (name, path) pair
//   - PageText: The extracted text of one page
//   - ImageRecord: Metadata of an image embedded in a page
//   - OCRText: Text recognised in an embedded image
//   - SearchHit: A single full-text match with its snippet
//   - IngestResult: The outcome of ingesting one document
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
