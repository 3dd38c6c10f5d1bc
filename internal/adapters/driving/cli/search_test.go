package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

func samplePage() domain.SearchPage {
	return domain.SearchPage{
		Hits: []domain.SearchHit{
			{DocumentID: 1, Name: "report", PageNumber: 3, Snippet: "the <mark>budget</mark> &amp; plan", Source: domain.SourcePDFText},
			{DocumentID: 2, Name: "scan", PageNumber: 1, Snippet: "<mark>budget</mark> table", Source: domain.SourceOCRText},
		},
		Total:    2,
		Page:     1,
		PageSize: 20,
	}
}

func TestSearchCmd_PrintsResults(t *testing.T) {
	ts := setupTestServices(t)
	ts.search.page = samplePage()

	out, err := run(t, "search", "budget")
	require.NoError(t, err)

	assert.Contains(t, out, `Results for "budget"`)
	assert.Contains(t, out, "page 1 of 1, 2 hits")
	assert.Contains(t, out, "[1] report, page 3 (PDF Text)")
	assert.Contains(t, out, "the budget & plan")
	assert.Contains(t, out, "[2] scan, page 1 (OCR Text)")
}

func TestSearchCmd_BuildsQuery(t *testing.T) {
	ts := setupTestServices(t)
	ts.Config.Search.PageSize = 7

	_, err := run(t, "search", "quarterly", "budget", "--page", "3")
	require.NoError(t, err)

	require.Len(t, ts.search.queries, 1)
	assert.Equal(t, domain.SearchQuery{Term: "quarterly budget", Page: 3, PageSize: 7, UseIndex: true}, ts.search.queries[0])
}

func TestSearchCmd_Flags(t *testing.T) {
	ts := setupTestServices(t)

	_, err := run(t, "search", "budget", "-n", "50", "--substring")
	require.NoError(t, err)

	require.Len(t, ts.search.queries, 1)
	assert.Equal(t, 50, ts.search.queries[0].PageSize)
	assert.False(t, ts.search.queries[0].UseIndex)
}

func TestSearchCmd_IndexDisabledInConfig(t *testing.T) {
	ts := setupTestServices(t)
	ts.Config.Search.UseIndex = false

	_, err := run(t, "search", "budget")
	require.NoError(t, err)

	assert.False(t, ts.search.queries[0].UseIndex)
}

func TestSearchCmd_NoResults(t *testing.T) {
	ts := setupTestServices(t)
	ts.search.page = domain.SearchPage{Hits: []domain.SearchHit{}, Page: 1, PageSize: 20}

	out, err := run(t, "search", "nothing")
	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_JSON(t *testing.T) {
	ts := setupTestServices(t)
	ts.search.page = samplePage()

	out, err := run(t, "search", "budget", "--json")
	require.NoError(t, err)

	var got searchOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "budget", got.Query)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.TotalPages)
	require.Len(t, got.Hits, 2)
	assert.Equal(t, hitOutput{
		DocumentID: 2,
		Name:       "scan",
		Page:       1,
		Source:     "OCR Text",
		Snippet:    "<mark>budget</mark> table",
	}, got.Hits[1])
}

func TestSearchCmd_EmptyJSONHasHitsArray(t *testing.T) {
	setupTestServices(t)

	out, err := run(t, "search", "x", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"hits": []`)
}

func TestSearchCmd_NotConfigured(t *testing.T) {
	ts := setupTestServices(t)
	ts.Search = nil

	_, err := run(t, "search", "x")
	assert.EqualError(t, err, "search service not configured")
}
