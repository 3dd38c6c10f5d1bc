// Package sqlite provides the SQLite implementation of driven.DocumentStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. FTS5 is compiled into the driver.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
// Page text and OCR text are mirrored into the fts_pages and fts_ocr tables;
// the mirror row shares the primary row's id and is written in the same
// transaction, so the index never diverges from the primary tables.
//
// # Data Location
//
// By default, the database is stored at ~/.pdfsearch/data/index.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode, with a busy timeout so concurrent writers queue.
package sqlite
