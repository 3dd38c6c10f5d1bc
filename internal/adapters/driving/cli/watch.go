package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfsearch/internal/adapters/driving/watch"
)

var (
	watchSettle  time.Duration
	watchInitial bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [folder]",
	Short: "Ingest PDFs as they are added to a folder",
	Long: `Watches a folder and ingests each PDF once it has finished being written.
Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettle, "quiet period before a changed file is ingested")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "ingest PDFs already in the folder first")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if services == nil || services.Ingest == nil {
		return errors.New("ingest service not configured")
	}
	ctx := cmd.Context()
	folder := args[0]

	if watchInitial {
		batch, err := services.Ingest.IngestFolder(ctx, folder, ingestWorkers)
		if err != nil {
			return fmt.Errorf("failed to ingest %s: %w", folder, err)
		}
		for _, r := range batch.Results {
			printIngestResult(cmd, r)
		}
	}

	w := watch.New(folder, services.Ingest, watch.WithSettle(watchSettle))
	results, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", folder, err)
	}
	defer w.Close()

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", folder)
	for r := range results {
		if jsonOutput {
			if err := printJSON(cmd, toIngestOutput(r)); err != nil {
				return err
			}
			continue
		}
		printIngestResult(cmd, r)
	}
	return nil
}
