// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: Document persistence and full-text search (SQLite FTS5)
//   - PDFDecoder: Opens PDFs and extracts page text and embedded images
//   - OCREngine: Recognises text in images (tesseract subprocess or libtesseract)
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - MemoryProbe: System memory sampling. Without it, caches only enforce
//     their item limits.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
