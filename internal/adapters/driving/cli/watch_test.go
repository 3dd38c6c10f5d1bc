package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

func TestWatchCmd_StopsOnCancel(t *testing.T) {
	ts := setupTestServices(t)
	folder := t.TempDir()
	ts.ingest.batch = domain.BatchResult{Results: []domain.IngestResult{
		{Path: filepath.Join(folder, "existing.pdf"), State: domain.StateSkipped},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := runContext(t, ctx, "watch", folder)
	require.NoError(t, err)

	assert.Equal(t, []string{folder}, ts.ingest.folders)
	assert.Contains(t, out, "existing.pdf (already ingested)")
	assert.Contains(t, out, "Watching "+folder)
}

func TestWatchCmd_SkipInitial(t *testing.T) {
	ts := setupTestServices(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runContext(t, ctx, "watch", t.TempDir(), "--initial=false")
	require.NoError(t, err)
	assert.Empty(t, ts.ingest.folders)
}

func TestWatchCmd_InvalidFolder(t *testing.T) {
	ts := setupTestServices(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := runContext(t, ctx, "watch", filepath.Join(t.TempDir(), "missing"), "--initial=false")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Empty(t, ts.ingest.folders)
}
