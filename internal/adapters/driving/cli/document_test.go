package cli

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

func seedDocuments(ts *testServices) {
	created := time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
	ts.documents.docs = []domain.Document{
		{ID: 1, Name: "report", Path: "/docs/report.pdf", Status: domain.StatusComplete, CreatedAt: created, LastAccessed: created},
		{ID: 2, Name: "scan", Path: "/docs/scan.pdf", Status: domain.StatusPending, CreatedAt: created, LastAccessed: created},
	}
}

func TestListCmd(t *testing.T) {
	ts := setupTestServices(t)
	seedDocuments(ts)

	out, err := run(t, "list")
	require.NoError(t, err)

	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "report")
	assert.Contains(t, out, "/docs/scan.pdf")
	assert.Contains(t, out, "2025-03-14 09:30:00")
	assert.Contains(t, out, "Total: 2 documents")
}

func TestListCmd_Empty(t *testing.T) {
	setupTestServices(t)

	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No documents ingested.")
}

func TestListCmd_JSON(t *testing.T) {
	ts := setupTestServices(t)
	seedDocuments(ts)

	out, err := run(t, "list", "--json")
	require.NoError(t, err)

	var got []documentOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, documentOutput{
		ID:           2,
		Name:         "scan",
		Path:         "/docs/scan.pdf",
		Status:       "pending",
		CreatedAt:    "2025-03-14 09:30:00",
		LastAccessed: "2025-03-14 09:30:00",
	}, got[1])
}

func TestPathCmd(t *testing.T) {
	ts := setupTestServices(t)
	seedDocuments(ts)

	out, err := run(t, "path", "1")
	require.NoError(t, err)
	assert.Equal(t, "/docs/report.pdf\n", out)
}

func TestPathCmd_Errors(t *testing.T) {
	ts := setupTestServices(t)
	seedDocuments(ts)

	_, err := run(t, "path", "99")
	assert.EqualError(t, err, "document 99 not found")

	_, err = run(t, "path", "abc")
	assert.EqualError(t, err, `invalid document id "abc"`)
}

func TestOpenCmd(t *testing.T) {
	ts := setupTestServices(t)
	seedDocuments(ts)

	_, err := run(t, "open", "2")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, ts.documents.opened)

	_, err = run(t, "open", "5")
	assert.EqualError(t, err, "document 5 not found")
}

func TestDeleteCmd(t *testing.T) {
	ts := setupTestServices(t)
	seedDocuments(ts)

	out, err := run(t, "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Document 1 removed.")
	assert.Equal(t, []int64{1}, ts.documents.deleted)

	_, err = run(t, "delete", "8")
	assert.EqualError(t, err, "document 8 not found")
}

func TestStatsCmd(t *testing.T) {
	ts := setupTestServices(t)
	ts.documents.stats = domain.StoreStats{Documents: 4, Pending: 1, Pages: 210, Images: 12, OCRTexts: 9}

	out, err := run(t, "stats")
	require.NoError(t, err)

	assert.Contains(t, out, "Documents:  4 (1 incomplete)")
	assert.Contains(t, out, "Pages:      210")
	assert.Contains(t, out, "OCR texts:  9")
	assert.Contains(t, out, "OCR engine: tesseract")
}

func TestStatsCmd_JSON(t *testing.T) {
	ts := setupTestServices(t)
	ts.documents.stats = domain.StoreStats{Documents: 2, Pages: 5}

	out, err := run(t, "stats", "--json")
	require.NoError(t, err)

	var got statsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, statsOutput{Documents: 2, Pages: 5, OCREngine: "tesseract"}, got)
}

func TestDocumentCmds_NotConfigured(t *testing.T) {
	ts := setupTestServices(t)
	ts.Documents = nil

	for _, args := range [][]string{{"list"}, {"path", "1"}, {"open", "1"}, {"delete", "1"}, {"stats"}} {
		_, err := run(t, args...)
		assert.EqualError(t, err, "document service not configured", args[0])
	}
}
