package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

var ingestWorkers int

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest PDF files or folders",
	Long: `Ingests PDF files into the index. A folder argument ingests every
PDF directly inside it using a pool of workers. Documents that were
already ingested are skipped.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 0, "concurrent documents per folder (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

// ingestOutput is the JSON form of a domain.IngestResult.
type ingestOutput struct {
	Path       string `json:"path"`
	DocumentID int64  `json:"document_id,omitempty"`
	State      string `json:"state"`
	Pages      int    `json:"pages"`
	Images     int    `json:"images"`
	OCRTexts   int    `json:"ocr_texts"`
	Streamed   bool   `json:"streamed,omitempty"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

func toIngestOutput(r domain.IngestResult) ingestOutput {
	out := ingestOutput{
		Path:       r.Path,
		DocumentID: r.DocumentID,
		State:      string(r.State),
		Pages:      r.Pages,
		Images:     r.Images,
		OCRTexts:   r.OCRTexts,
		Streamed:   r.Streamed,
		DurationMS: r.Duration.Milliseconds(),
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return out
}

func runIngest(cmd *cobra.Command, args []string) error {
	if services == nil || services.Ingest == nil {
		return errors.New("ingest service not configured")
	}
	ctx := cmd.Context()
	progress := isTerminal(cmd.OutOrStdout()) && !jsonOutput

	var results []domain.IngestResult
	for _, path := range args {
		if progress {
			cmd.PrintErrf("Ingesting %s...\n", path)
		}
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			batch, err := services.Ingest.IngestFolder(ctx, path, ingestWorkers)
			if err != nil {
				return fmt.Errorf("failed to ingest %s: %w", path, err)
			}
			results = append(results, batch.Results...)
			continue
		}
		results = append(results, services.Ingest.IngestDocument(ctx, path))
	}

	if jsonOutput {
		out := make([]ingestOutput, 0, len(results))
		for _, r := range results {
			out = append(out, toIngestOutput(r))
		}
		if err := printJSON(cmd, out); err != nil {
			return err
		}
	} else {
		printIngestResults(cmd, results)
	}

	batch := domain.BatchResult{Results: results}
	if n := len(batch.Failed()); n > 0 {
		return fmt.Errorf("%d of %d documents failed", n, len(results))
	}
	return nil
}

func printIngestResults(cmd *cobra.Command, results []domain.IngestResult) {
	for _, r := range results {
		printIngestResult(cmd, r)
	}

	batch := domain.BatchResult{Results: results}
	cmd.Printf("\n%d ingested, %d skipped, %d failed\n",
		batch.Count(domain.StateDone), batch.Count(domain.StateSkipped), batch.Count(domain.StateFailed))
}

func printIngestResult(cmd *cobra.Command, r domain.IngestResult) {
	switch r.State {
	case domain.StateDone:
		line := fmt.Sprintf("%d pages, %d images, %d OCR texts", r.Pages, r.Images, r.OCRTexts)
		if r.Streamed {
			line += ", streamed"
		}
		cmd.Printf("%s %s (%s, %s)\n", successStyle.Render("ingested"), r.Path, line,
			r.Duration.Round(time.Millisecond))
	case domain.StateSkipped:
		cmd.Printf("%s %s (already ingested)\n", mutedStyle.Render("skipped "), r.Path)
	default:
		cmd.Printf("%s %s: %v\n", errorStyle.Render("failed  "), r.Path, r.Err)
	}
}
