package sqlite

import (
	"context"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/logger"
	"github.com/custodia-labs/pdfsearch/internal/security"
)

// Snippet markers returned by the FTS5 snippet function. Stored text never
// contains them and SanitizeText drops control characters, so they never
// reach rendered output.
const (
	markStart = "\x02"
	markEnd   = "\x03"
)

var markerStripper = strings.NewReplacer(markStart, "", markEnd, "")

// stripMarkers removes snippet marker bytes from text about to be stored.
func stripMarkers(text string) string {
	if !strings.ContainsAny(text, markStart+markEnd) {
		return text
	}
	return markerStripper.Replace(text)
}

// snippetTokens is the FTS5 snippet width; likeSnippetRunes is the context
// kept on each side of a substring match.
const (
	snippetTokens    = 15
	likeSnippetRunes = 60
)

// hitsIndexed and hitsSubstring select one row per distinct
// (document, page, source). The source label is bound as a parameter.
const (
	hitsIndexed = `
		WITH hits AS (
			SELECT document_id, page_number, ? AS source FROM fts_pages WHERE fts_pages MATCH ?
			UNION
			SELECT document_id, page_number, ? AS source FROM fts_ocr WHERE fts_ocr MATCH ?
		)`
	hitsSubstring = `
		WITH hits AS (
			SELECT document_id, page_number, ? AS source FROM pages WHERE fold(text) LIKE ? ESCAPE '\'
			UNION
			SELECT document_id, page_number, ? AS source FROM ocr_text WHERE fold(ocr_text) LIKE ? ESCAPE '\'
		)`
)

// matcher is a prepared search term.
type matcher struct {
	term     string // sanitised user term
	pattern  string // MATCH expression or LIKE pattern
	useIndex bool
}

func (s *documentStore) prepare(term string, useIndex bool) (matcher, bool) {
	term = security.SanitizeSearchTerm(term)
	if term == "" {
		return matcher{}, false
	}
	m := matcher{term: term, useIndex: useIndex}
	if useIndex {
		if s.store.matchQuery.Len() > maxMemoizedQueries {
			s.store.matchQuery.Clear()
		}
		m.pattern = s.store.matchQuery.Call(term)
	} else {
		m.pattern = "%" + escapeLike(foldCase(term)) + "%"
	}
	return m, m.pattern != ""
}

func (m matcher) hitsCTE() (string, []any) {
	args := []any{string(domain.SourcePDFText), m.pattern, string(domain.SourceOCRText), m.pattern}
	if m.useIndex {
		return hitsIndexed, args
	}
	return hitsSubstring, args
}

// Search returns matching pages ordered by last access, most recent first,
// and bumps the last access of every document in [0, offset+limit).
func (s *documentStore) Search(ctx context.Context, term string, useIndex bool, limit, offset int) []domain.SearchHit {
	m, ok := s.prepare(term, useIndex)
	if !ok || limit <= 0 {
		return []domain.SearchHit{}
	}
	if offset < 0 {
		offset = 0
	}

	// The prefix up to the end of the requested page both yields the page and
	// names the documents whose access time is bumped.
	cte, args := m.hitsCTE()
	rows, err := s.store.db.QueryContext(ctx, cte+`
		SELECT h.document_id, d.name, h.page_number, h.source
		FROM hits h JOIN documents d ON d.id = h.document_id
		ORDER BY d.last_accessed DESC, d.id ASC, h.page_number ASC, h.source ASC
		LIMIT ?
	`, append(args, offset+limit)...)
	if err != nil {
		logger.Error("search %q: %v", m.term, err)
		return []domain.SearchHit{}
	}

	var prefix []domain.SearchHit
	for rows.Next() {
		var hit domain.SearchHit
		var source string
		if err := rows.Scan(&hit.DocumentID, &hit.Name, &hit.PageNumber, &source); err != nil {
			rows.Close()
			logger.Error("search %q: scanning hit: %v", m.term, err)
			return []domain.SearchHit{}
		}
		hit.Source = domain.TextSource(source)
		prefix = append(prefix, hit)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		logger.Error("search %q: %v", m.term, err)
		return []domain.SearchHit{}
	}

	if len(prefix) > 0 {
		if err := s.bumpLastAccessed(ctx, prefix); err != nil {
			logger.Error("search %q: updating last access: %v", m.term, err)
		}
	}
	if offset >= len(prefix) {
		return []domain.SearchHit{}
	}

	hits := prefix[offset:]
	for i := range hits {
		hits[i].Snippet = s.snippet(ctx, m, hits[i])
	}
	return hits
}

// Count returns the number of distinct (document, page, source) matches.
func (s *documentStore) Count(ctx context.Context, term string, useIndex bool) int {
	m, ok := s.prepare(term, useIndex)
	if !ok {
		return 0
	}
	cte, args := m.hitsCTE()
	var n int
	if err := s.store.db.QueryRowContext(ctx, cte+" SELECT COUNT(*) FROM hits", args...).Scan(&n); err != nil {
		logger.Error("count %q: %v", m.term, err)
		return 0
	}
	return n
}

// bumpLastAccessed moves the documents in prefix ahead of every other
// document while keeping their current relative order. The first document
// gets the largest timestamp, so a repeated query pages identically.
func (s *documentStore) bumpLastAccessed(ctx context.Context, prefix []domain.SearchHit) error {
	seen := make(map[int64]struct{}, len(prefix))
	ids := make([]int64, 0, len(prefix))
	for _, h := range prefix {
		if _, ok := seen[h.DocumentID]; ok {
			continue
		}
		seen[h.DocumentID] = struct{}{}
		ids = append(ids, h.DocumentID)
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return err
	}

	// One statement: the base is read and every row written under the same
	// write lock. json_each keys are 0-based positions in ids.
	_, err = s.store.db.ExecContext(ctx, `
		WITH
			base(b) AS MATERIALIZED (
				SELECT max(?, COALESCE(MAX(last_accessed), 0) + 1) FROM documents
			),
			ranked(id, k) AS MATERIALIZED (
				SELECT value, ? - key FROM json_each(?)
			)
		UPDATE documents
		SET last_accessed = (SELECT b FROM base) + (SELECT k FROM ranked WHERE ranked.id = documents.id)
		WHERE id IN (SELECT id FROM ranked)
	`, s.store.now().UnixNano(), len(ids), string(idsJSON))
	return err
}

// snippet returns an HTML-safe excerpt with the match wrapped in
// domain.SnippetOpen/SnippetClose. Failures yield an empty snippet.
func (s *documentStore) snippet(ctx context.Context, m matcher, hit domain.SearchHit) string {
	var query string
	switch {
	case m.useIndex && hit.Source == domain.SourceOCRText:
		query = "SELECT snippet(fts_ocr, 2, ?, ?, '...', ?) FROM fts_ocr WHERE fts_ocr MATCH ? AND document_id = ? AND page_number = ? LIMIT 1"
	case m.useIndex:
		query = "SELECT snippet(fts_pages, 2, ?, ?, '...', ?) FROM fts_pages WHERE fts_pages MATCH ? AND document_id = ? AND page_number = ? LIMIT 1"
	case hit.Source == domain.SourceOCRText:
		query = "SELECT ocr_text FROM ocr_text WHERE document_id = ? AND page_number = ? AND fold(ocr_text) LIKE ? ESCAPE '\\' ORDER BY id LIMIT 1"
	default:
		query = "SELECT text FROM pages WHERE document_id = ? AND page_number = ? AND fold(text) LIKE ? ESCAPE '\\' LIMIT 1"
	}

	var raw string
	var err error
	if m.useIndex {
		err = s.store.db.QueryRowContext(ctx, query,
			markStart, markEnd, snippetTokens, m.pattern, hit.DocumentID, hit.PageNumber).Scan(&raw)
	} else {
		err = s.store.db.QueryRowContext(ctx, query, hit.DocumentID, hit.PageNumber, m.pattern).Scan(&raw)
	}
	if err != nil {
		logger.Debug("snippet for document %d page %d: %v", hit.DocumentID, hit.PageNumber, err)
		return ""
	}
	if !m.useIndex {
		raw = substringSnippet(raw, m.term, likeSnippetRunes)
	}
	return renderSnippet(raw)
}

// renderSnippet sanitises the text between markers and replaces the markers
// with the public snippet tags.
func renderSnippet(raw string) string {
	var b strings.Builder
	for raw != "" {
		i := strings.Index(raw, markStart)
		if i < 0 {
			b.WriteString(security.SanitizeText(raw))
			break
		}
		b.WriteString(security.SanitizeText(raw[:i]))
		raw = raw[i+len(markStart):]

		j := strings.Index(raw, markEnd)
		if j < 0 {
			j = len(raw)
		}
		b.WriteString(domain.SnippetOpen)
		b.WriteString(security.SanitizeText(raw[:j]))
		b.WriteString(domain.SnippetClose)
		raw = raw[min(j+len(markEnd), len(raw)):]
	}
	return b.String()
}

// substringSnippet cuts a window of context runes around the first
// case-insensitive occurrence of term and marks it. Whitespace runs are
// collapsed.
func substringSnippet(text, term string, width int) string {
	text = strings.Join(strings.Fields(text), " ")
	start, end := foldIndex(text, term)
	if start < 0 {
		return truncateRunes(text, 2*width)
	}

	from := start
	for n := 0; n < width && from > 0; n++ {
		_, size := utf8.DecodeLastRuneInString(text[:from])
		from -= size
	}
	to := end
	for n := 0; n < width && to < len(text); n++ {
		_, size := utf8.DecodeRuneInString(text[to:])
		to += size
	}

	var b strings.Builder
	if from > 0 {
		b.WriteString("...")
	}
	b.WriteString(text[from:start])
	b.WriteString(markStart)
	b.WriteString(text[start:end])
	b.WriteString(markEnd)
	b.WriteString(text[end:to])
	if to < len(text) {
		b.WriteString("...")
	}
	return b.String()
}

// foldIndex returns the byte range of the first case-insensitive match of
// term in text, or -1, -1.
func foldIndex(text, term string) (int, int) {
	n := utf8.RuneCountInString(term)
	if n == 0 {
		return -1, -1
	}
	for i := range text {
		end := i
		for k := 0; k < n && end < len(text); k++ {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
		}
		if strings.EqualFold(text[i:end], term) {
			return i, end
		}
	}
	return -1, -1
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// buildMatchQuery turns a sanitised term into an FTS5 expression: every run
// of letters and digits becomes a quoted prefix token and all tokens must
// match. Operators and punctuation in the input are never interpreted.
func buildMatchQuery(term string) string {
	tokens := strings.FieldsFunc(term, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, tok := range tokens {
		tokens[i] = `"` + tok + `"*`
	}
	return strings.Join(tokens, " ")
}

// escapeLike escapes LIKE wildcards with a backslash.
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}
