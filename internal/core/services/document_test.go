package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memstore "github.com/custodia-labs/pdfsearch/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

func TestDocumentService_NilDocStore(t *testing.T) {
	svc := NewDocumentService(nil, nil)
	ctx := context.Background()

	_, err := svc.GetDocumentPath(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	_, err = svc.Get(ctx, 1)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	_, err = svc.List(ctx)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	_, err = svc.Stats(ctx)
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	assert.ErrorIs(t, svc.Delete(ctx, 1), domain.ErrNotImplemented)
	assert.ErrorIs(t, svc.Open(ctx, 1), domain.ErrNotImplemented)
}

func TestDocumentService_GetDocumentPath(t *testing.T) {
	store := memstore.NewDocumentStore()
	ctx := context.Background()
	id, err := store.InsertDocument(ctx, "report", "/docs/report.pdf")
	require.NoError(t, err)
	svc := NewDocumentService(store, nil)

	path, err := svc.GetDocumentPath(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "/docs/report.pdf", path)

	_, err = svc.GetDocumentPath(ctx, id+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_ListGetStats(t *testing.T) {
	store := seedStore(t, 2, 3)
	svc := NewDocumentService(store, nil)
	ctx := context.Background()

	docs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	doc, err := svc.Get(ctx, docs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "doc2", doc.Name)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Documents)
	assert.Equal(t, 6, st.Pages)
}

func TestDocumentService_Delete(t *testing.T) {
	store := seedStore(t, 2, 1)
	deleted := 0
	svc := NewDocumentService(store, func() { deleted++ })
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, 1))
	assert.Equal(t, 1, deleted)

	assert.ErrorIs(t, svc.Delete(ctx, 1), domain.ErrNotFound)
	assert.Equal(t, 1, deleted, "hook only runs after a removal")

	docs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestDocumentService_Open(t *testing.T) {
	store := seedStore(t, 1, 1)
	svc := NewDocumentService(store, nil)
	var opened string
	svc.open = func(path string) error {
		opened = path
		return nil
	}
	ctx := context.Background()

	require.NoError(t, svc.Open(ctx, 1))
	assert.Equal(t, "/docs/doc1.pdf", opened)

	svc.open = func(string) error { return errors.New("no viewer") }
	assert.ErrorContains(t, svc.Open(ctx, 1), "no viewer")
	assert.ErrorIs(t, svc.Open(ctx, 9), domain.ErrNotFound)
}
