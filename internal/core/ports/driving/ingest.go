package driving

import (
	"context"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

// IngestService turns PDF files into indexed documents.
type IngestService interface {
	// IngestDocument ingests one PDF. Failures are reported in the result,
	// never as a panic; an already ingested document yields StateSkipped.
	IngestDocument(ctx context.Context, path string) domain.IngestResult

	// IngestFolder ingests every PDF directly inside folder using at most
	// maxWorkers concurrent workers (<= 0 selects the default).
	// One failing document never stops the others.
	IngestFolder(ctx context.Context, folder string, maxWorkers int) (domain.BatchResult, error)
}
