package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/security"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Both search modes match case-insensitive substrings; ordering and the
// last access bump follow the SQLite store.
type DocumentStore struct {
	mu        sync.RWMutex
	nextID    int64
	documents map[int64]*domain.Document
	pages     map[int64][]domain.PageText
	images    map[int64][]domain.ImageRecord
	ocr       map[int64][]domain.OCRText

	// Now replaces time.Now when set.
	Now func() time.Time
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[int64]*domain.Document),
		pages:     make(map[int64][]domain.PageText),
		images:    make(map[int64][]domain.ImageRecord),
		ocr:       make(map[int64][]domain.OCRText),
	}
}

func (s *DocumentStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// InsertDocument creates a pending document.
func (s *DocumentStore) InsertDocument(ctx context.Context, name, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findLocked(name, path) != nil {
		return 0, domain.ErrDuplicateDocument
	}
	s.nextID++
	now := s.now()
	s.documents[s.nextID] = &domain.Document{
		ID:           s.nextID,
		Name:         name,
		Path:         path,
		Status:       domain.StatusPending,
		CreatedAt:    now,
		LastAccessed: now,
	}
	return s.nextID, nil
}

func (s *DocumentStore) findLocked(name, path string) *domain.Document {
	for _, doc := range s.documents {
		if doc.Name == name && doc.Path == path {
			return doc
		}
	}
	return nil
}

// IsProcessed reports whether a complete document with (name, path) exists.
func (s *DocumentStore) IsProcessed(_ context.Context, name, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := s.findLocked(name, path)
	return doc != nil && doc.Status == domain.StatusComplete, nil
}

// FindDocument returns the document with (name, path).
func (s *DocumentStore) FindDocument(_ context.Context, name, path string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := s.findLocked(name, path)
	if doc == nil {
		return nil, domain.ErrNotFound
	}
	out := *doc
	return &out, nil
}

// MarkComplete flags a document as fully ingested.
func (s *DocumentStore) MarkComplete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	doc.Status = domain.StatusComplete
	return nil
}

// DeleteDocument removes a document and everything stored for it.
func (s *DocumentStore) DeleteDocument(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.pages, id)
	delete(s.images, id)
	delete(s.ocr, id)
	return nil
}

// InsertPageText stores the text of one page.
func (s *DocumentStore) InsertPageText(ctx context.Context, docID int64, page int, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[docID]; !ok {
		return fmt.Errorf("inserting page text: %w: unknown document %d", domain.ErrStorage, docID)
	}
	for _, p := range s.pages[docID] {
		if p.PageNumber == page {
			return fmt.Errorf("inserting page text: %w: page %d exists", domain.ErrStorage, page)
		}
	}
	s.pages[docID] = append(s.pages[docID], domain.PageText{DocumentID: docID, PageNumber: page, Text: text})
	return nil
}

// InsertImageMetadata records an embedded image.
func (s *DocumentStore) InsertImageMetadata(_ context.Context, docID int64, page int, name, ext string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[docID]; !ok {
		return fmt.Errorf("inserting image: %w: unknown document %d", domain.ErrStorage, docID)
	}
	s.images[docID] = append(s.images[docID], domain.ImageRecord{DocumentID: docID, PageNumber: page, Name: name, Ext: ext})
	return nil
}

// InsertOCRText stores recognised text of one image.
func (s *DocumentStore) InsertOCRText(_ context.Context, docID int64, page int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[docID]; !ok {
		return fmt.Errorf("inserting ocr text: %w: unknown document %d", domain.ErrStorage, docID)
	}
	s.ocr[docID] = append(s.ocr[docID], domain.OCRText{DocumentID: docID, PageNumber: page, Text: text})
	return nil
}

// GetPath returns the source path of a document.
func (s *DocumentStore) GetPath(_ context.Context, id int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return "", domain.ErrNotFound
	}
	return doc.Path, nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *doc
	return &out, nil
}

// ListDocuments returns all documents ordered by ID.
func (s *DocumentStore) ListDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		result = append(result, *doc)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// Pages returns the stored pages of a document in page order.
func (s *DocumentStore) Pages(id int64) []domain.PageText {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]domain.PageText(nil), s.pages[id]...)
	sort.Slice(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	return out
}

// Images returns the stored image records of a document.
func (s *DocumentStore) Images(id int64) []domain.ImageRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ImageRecord(nil), s.images[id]...)
}

// OCRTexts returns the stored OCR texts of a document.
func (s *DocumentStore) OCRTexts(id int64) []domain.OCRText {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.OCRText(nil), s.ocr[id]...)
}

// Search returns matching pages ordered by last access, most recent first,
// and bumps the last access of every document in [0, offset+limit).
func (s *DocumentStore) Search(_ context.Context, term string, _ bool, limit, offset int) []domain.SearchHit {
	term = security.SanitizeSearchTerm(term)
	if term == "" || limit <= 0 {
		return []domain.SearchHit{}
	}
	offset = max(offset, 0)

	s.mu.Lock()
	defer s.mu.Unlock()

	hits := s.matchLocked(term)
	end := min(offset+limit, len(hits))
	s.bumpLocked(hits[:end])
	if offset >= end {
		return []domain.SearchHit{}
	}
	return hits[offset:end]
}

// Count returns the number of distinct (document, page, source) matches.
func (s *DocumentStore) Count(_ context.Context, term string, _ bool) int {
	term = security.SanitizeSearchTerm(term)
	if term == "" {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matchLocked(term))
}

func (s *DocumentStore) matchLocked(term string) []domain.SearchHit {
	type hitKey struct {
		doc    int64
		page   int
		source domain.TextSource
	}
	seen := make(map[hitKey]bool)
	var hits []domain.SearchHit
	add := func(doc *domain.Document, page int, source domain.TextSource, text string) {
		k := hitKey{doc.ID, page, source}
		if seen[k] {
			return
		}
		snippet, ok := markMatch(text, term)
		if !ok {
			return
		}
		seen[k] = true
		hits = append(hits, domain.SearchHit{
			DocumentID: doc.ID,
			Name:       doc.Name,
			PageNumber: page,
			Snippet:    snippet,
			Source:     source,
		})
	}
	for id, doc := range s.documents {
		for _, p := range s.pages[id] {
			add(doc, p.PageNumber, domain.SourcePDFText, p.Text)
		}
		for _, o := range s.ocr[id] {
			add(doc, o.PageNumber, domain.SourceOCRText, o.Text)
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		la, lb := s.documents[a.DocumentID].LastAccessed, s.documents[b.DocumentID].LastAccessed
		switch {
		case !la.Equal(lb):
			return la.After(lb)
		case a.DocumentID != b.DocumentID:
			return a.DocumentID < b.DocumentID
		case a.PageNumber != b.PageNumber:
			return a.PageNumber < b.PageNumber
		default:
			return a.Source < b.Source
		}
	})
	return hits
}

// bumpLocked moves the documents of prefix ahead of all others, keeping
// their relative order.
func (s *DocumentStore) bumpLocked(prefix []domain.SearchHit) {
	var ids []int64
	seen := make(map[int64]bool)
	for _, h := range prefix {
		if !seen[h.DocumentID] {
			seen[h.DocumentID] = true
			ids = append(ids, h.DocumentID)
		}
	}
	if len(ids) == 0 {
		return
	}

	base := s.now()
	for _, doc := range s.documents {
		if !doc.LastAccessed.Before(base) {
			base = doc.LastAccessed.Add(time.Nanosecond)
		}
	}
	for i, id := range ids {
		s.documents[id].LastAccessed = base.Add(time.Duration(len(ids)-i) * time.Nanosecond)
	}
}

// markMatch wraps the first case-insensitive occurrence of term in the
// snippet markers. The full text is kept; it is sanitised around the match.
func markMatch(text, term string) (string, bool) {
	lower, lowerTerm := strings.ToLower(text), strings.ToLower(term)
	i := strings.Index(lower, lowerTerm)
	if i < 0 {
		return "", false
	}
	if len(lower) != len(text) || len(lowerTerm) != len(term) {
		// offsets into lower do not map back onto text
		return security.SanitizeText(text), true
	}
	end := i + len(term)
	return security.SanitizeText(text[:i]) + domain.SnippetOpen +
		security.SanitizeText(text[i:end]) + domain.SnippetClose +
		security.SanitizeText(text[end:]), true
}

// Stats summarises the store contents.
func (s *DocumentStore) Stats(_ context.Context) (domain.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st domain.StoreStats
	for id, doc := range s.documents {
		st.Documents++
		if doc.Status == domain.StatusPending {
			st.Pending++
		}
		st.Pages += len(s.pages[id])
		st.Images += len(s.images[id])
		st.OCRTexts += len(s.ocr[id])
	}
	return st, nil
}
