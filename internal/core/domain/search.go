package domain

// TextSource names where matched text came from.
type TextSource string

const (
	// SourcePDFText is text extracted from the PDF content stream.
	SourcePDFText TextSource = "PDF Text"

	// SourceOCRText is text recognised in an embedded image.
	SourceOCRText TextSource = "OCR Text"
)

// SnippetOpen and SnippetClose delimit the matched term inside a snippet.
const (
	SnippetOpen  = "<mark>"
	SnippetClose = "</mark>"
)

// SearchHit is one matching page of one document.
type SearchHit struct {
	// DocumentID identifies the matched document.
	DocumentID int64

	// Name is the document name.
	Name string

	// PageNumber is the 1-based matching page.
	PageNumber int

	// Snippet is a bounded excerpt around the match.
	// Matched terms are wrapped in SnippetOpen/SnippetClose and the rest is HTML-escaped.
	Snippet string

	// Source tells whether the match came from page text or OCR.
	Source TextSource
}

// SearchQuery is a paginated query as issued by a presentation layer.
type SearchQuery struct {
	// Term is the raw user input; it is sanitised before use.
	Term string

	// Page is 1-based.
	Page int

	// PageSize is the number of hits per page.
	PageSize int

	// UseIndex selects the full-text index; false falls back to substring matching.
	UseIndex bool
}

// Offset returns the number of hits skipped before this page.
func (q SearchQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}

// SearchPage is one page of hits plus the total for pagination.
type SearchPage struct {
	Hits     []SearchHit
	Total    int
	Page     int
	PageSize int
}

// TotalPages returns how many pages the total spans.
func (p SearchPage) TotalPages() int {
	if p.PageSize <= 0 || p.Total == 0 {
		return 0
	}
	return (p.Total + p.PageSize - 1) / p.PageSize
}
