package sqlite

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"

	"github.com/custodia-labs/pdfsearch/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/pdfsearch/internal/cache"
	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
)

// DatabaseFile is the file name of the index inside the data directory.
const DatabaseFile = "index.db"

// maxMemoizedQueries bounds the memoized MATCH expressions.
const maxMemoizedQueries = 1024

func init() {
	// fold lowercases every letter; LIKE alone folds ASCII only.
	msqlite.MustRegisterDeterministicScalarFunction("fold", 1, foldFunc)
}

func foldFunc(_ *msqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return foldCase(v), nil
	case []byte:
		return foldCase(string(v)), nil
	default:
		return v, nil
	}
}

// foldCase is the Go side of the SQL fold function.
func foldCase(s string) string {
	return strings.ToLower(s)
}

// Store is the SQLite-backed document store with its full-text index.
type Store struct {
	db   *sql.DB
	path string

	// now is replaceable in tests.
	now func() time.Time

	matchQuery *cache.Memoizer[string, string]
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.pdfsearch/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".pdfsearch", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// WAL lets readers proceed while a writer commits. The pragmas are part of
	// the DSN so every pooled connection gets them, foreign keys included.
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:         db,
		path:       dbPath,
		now:        time.Now,
		matchQuery: cache.Memoize(buildMatchQuery),
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// DocumentStore returns a DocumentStore interface backed by this store.
func (s *Store) DocumentStore() driven.DocumentStore {
	return &documentStore{store: s}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if err := s.inTx(context.Background(), func(tx *sql.Tx) error {
			if _, err := tx.Exec(string(content)); err != nil {
				return err
			}
			_, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version)
			return err
		}); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("getting schema version: %w", err)
	}
	return version, nil
}

// inTx runs fn in a transaction, committing on success.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: beginning transaction: %v", domain.ErrStorage, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: committing: %v", domain.ErrStorage, err)
	}
	return nil
}

// ==================== Document Store ====================

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// InsertDocument creates a pending document.
func (s *documentStore) InsertDocument(ctx context.Context, name, path string) (int64, error) {
	now := s.store.now().UnixNano()
	// ON CONFLICT turns a concurrent duplicate into zero affected rows
	// instead of a constraint error.
	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO documents (name, path, status, created_at, last_accessed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (name, path) DO NOTHING
	`, name, path, string(domain.StatusPending), now, now)
	if err != nil {
		return 0, fmt.Errorf("%w: inserting document: %v", domain.ErrStorage, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: inserting document: %v", domain.ErrStorage, err)
	}
	if affected == 0 {
		return 0, fmt.Errorf("%w: %s (%s)", domain.ErrDuplicateDocument, name, path)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: reading document id: %v", domain.ErrStorage, err)
	}
	return id, nil
}

// IsProcessed reports whether a complete document with (name, path) exists.
func (s *documentStore) IsProcessed(ctx context.Context, name, path string) (bool, error) {
	var n int
	err := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE name = ? AND path = ? AND status = ?
	`, name, path, string(domain.StatusComplete)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("%w: checking document: %v", domain.ErrStorage, err)
	}
	return n > 0, nil
}

// FindDocument returns the document with (name, path) in any status.
func (s *documentStore) FindDocument(ctx context.Context, name, path string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, path, status, created_at, last_accessed
		FROM documents WHERE name = ? AND path = ?
	`, name, path)
	return scanDocument(row)
}

// MarkComplete flags a document as fully ingested.
func (s *documentStore) MarkComplete(ctx context.Context, id int64) error {
	res, err := s.store.db.ExecContext(ctx,
		"UPDATE documents SET status = ? WHERE id = ?", string(domain.StatusComplete), id)
	if err != nil {
		return fmt.Errorf("%w: marking document complete: %v", domain.ErrStorage, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteDocument removes index entries, then the document. Pages, images and
// OCR rows follow through the cascade.
func (s *documentStore) DeleteDocument(ctx context.Context, id int64) error {
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM fts_pages WHERE rowid IN (SELECT id FROM pages WHERE document_id = ?)", id); err != nil {
			return fmt.Errorf("%w: deleting page index: %v", domain.ErrStorage, err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM fts_ocr WHERE rowid IN (SELECT id FROM ocr_text WHERE document_id = ?)", id); err != nil {
			return fmt.Errorf("%w: deleting ocr index: %v", domain.ErrStorage, err)
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("%w: deleting document: %v", domain.ErrStorage, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// InsertPageText stores the text of one page and its index entry.
// Snippet marker bytes are removed from the text first.
func (s *documentStore) InsertPageText(ctx context.Context, docID int64, page int, text string) error {
	text = stripMarkers(text)
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO pages (document_id, page_number, text) VALUES (?, ?, ?)", docID, page, text)
		if err != nil {
			return fmt.Errorf("%w: inserting page %d: %v", domain.ErrStorage, page, err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: reading page id: %v", domain.ErrStorage, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO fts_pages (rowid, document_id, page_number, content) VALUES (?, ?, ?, ?)",
			rowID, docID, page, text); err != nil {
			return fmt.Errorf("%w: indexing page %d: %v", domain.ErrStorage, page, err)
		}
		return nil
	})
}

// InsertImageMetadata records an embedded image.
func (s *documentStore) InsertImageMetadata(ctx context.Context, docID int64, page int, name, ext string) error {
	_, err := s.store.db.ExecContext(ctx,
		"INSERT INTO images (document_id, page_number, image_name, image_ext) VALUES (?, ?, ?, ?)",
		docID, page, name, ext)
	if err != nil {
		return fmt.Errorf("%w: inserting image %s: %v", domain.ErrStorage, name, err)
	}
	return nil
}

// InsertOCRText stores recognised text and its index entry.
func (s *documentStore) InsertOCRText(ctx context.Context, docID int64, page int, text string) error {
	text = stripMarkers(text)
	return s.store.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO ocr_text (document_id, page_number, ocr_text) VALUES (?, ?, ?)", docID, page, text)
		if err != nil {
			return fmt.Errorf("%w: inserting ocr text on page %d: %v", domain.ErrStorage, page, err)
		}
		rowID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("%w: reading ocr id: %v", domain.ErrStorage, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO fts_ocr (rowid, document_id, page_number, content) VALUES (?, ?, ?, ?)",
			rowID, docID, page, text); err != nil {
			return fmt.Errorf("%w: indexing ocr text on page %d: %v", domain.ErrStorage, page, err)
		}
		return nil
	})
}

// GetPath returns the source path of a document.
func (s *documentStore) GetPath(ctx context.Context, id int64) (string, error) {
	var path string
	err := s.store.db.QueryRowContext(ctx, "SELECT path FROM documents WHERE id = ?", id).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: reading path: %v", domain.ErrStorage, err)
	}
	return path, nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id int64) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, name, path, status, created_at, last_accessed
		FROM documents WHERE id = ?
	`, id)
	return scanDocument(row)
}

// ListDocuments returns all documents ordered by ID.
func (s *documentStore) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, name, path, status, created_at, last_accessed
		FROM documents ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: querying documents: %v", domain.ErrStorage, err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating documents: %v", domain.ErrStorage, err)
	}
	return docs, nil
}

// Stats summarises the store contents.
func (s *documentStore) Stats(ctx context.Context) (domain.StoreStats, error) {
	var st domain.StoreStats
	err := s.store.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM documents WHERE status = ?),
			(SELECT COUNT(*) FROM pages),
			(SELECT COUNT(*) FROM images),
			(SELECT COUNT(*) FROM ocr_text)
	`, string(domain.StatusPending)).Scan(&st.Documents, &st.Pending, &st.Pages, &st.Images, &st.OCRTexts)
	if err != nil {
		return domain.StoreStats{}, fmt.Errorf("%w: reading stats: %v", domain.ErrStorage, err)
	}
	return st, nil
}

// ==================== Helper Functions ====================

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var createdAt, lastAccessed int64
	if err := row.Scan(&doc.ID, &doc.Name, &doc.Path, &status, &createdAt, &lastAccessed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("%w: scanning document: %v", domain.ErrStorage, err)
	}
	doc.Status = domain.DocumentStatus(status)
	doc.CreatedAt = time.Unix(0, createdAt).UTC()
	doc.LastAccessed = time.Unix(0, lastAccessed).UTC()
	return &doc, nil
}
