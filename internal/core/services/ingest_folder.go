package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/logger"
	"github.com/custodia-labs/pdfsearch/internal/security"
)

// IngestFolder ingests every PDF directly inside folder. Documents run on at
// most maxWorkers goroutines; a failed document never stops the others.
// Documents not yet started when ctx is cancelled end Failed with ctx.Err().
// The returned error covers only an unusable folder.
func (s *IngestService) IngestFolder(ctx context.Context, folder string, maxWorkers int) (domain.BatchResult, error) {
	batch := domain.BatchResult{
		ID:        uuid.NewString(),
		Folder:    folder,
		StartedAt: time.Now(),
	}
	if err := security.ValidateFolderPath(folder); err != nil {
		return batch, err
	}
	paths, err := ListPDFs(folder)
	if err != nil {
		return batch, err
	}
	if maxWorkers <= 0 {
		maxWorkers = s.opts.MaxWorkers
	}

	logger.Section("Ingest " + folder)
	logger.Info("batch %s: %d PDFs, %d workers", batch.ID, len(paths), maxWorkers)

	batch.Results = make([]domain.IngestResult, len(paths))
	var g errgroup.Group
	g.SetLimit(maxWorkers)
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			batch.Results[i] = cancelledResult(path, err)
			continue
		}
		g.Go(func() error {
			batch.Results[i] = s.IngestDocument(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	batch.CompletedAt = time.Now()
	logger.Info("batch %s: %d done, %d skipped, %d failed in %s",
		batch.ID,
		batch.Count(domain.StateDone),
		batch.Count(domain.StateSkipped),
		batch.Count(domain.StateFailed),
		batch.CompletedAt.Sub(batch.StartedAt).Round(time.Millisecond))
	return batch, nil
}

func cancelledResult(path string, err error) domain.IngestResult {
	r := domain.IngestResult{Path: path}
	r.Transition(domain.StatePending)
	r.Fail(err)
	return r
}

// ListPDFs returns the .pdf files directly inside folder in lexical order.
// The extension match ignores case; subdirectories are not visited.
func ListPDFs(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", folder, err)
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !security.IsPDFName(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(folder, e.Name()))
	}
	return paths, nil
}
