// Package cli implements the pdfsearch command line.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/pdfsearch/internal/config"
	"github.com/custodia-labs/pdfsearch/internal/core/domain"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driven"
	"github.com/custodia-labs/pdfsearch/internal/core/ports/driving"
	"github.com/custodia-labs/pdfsearch/internal/logger"
)

// version is set at build time.
var version = "dev"

// Global flags.
var (
	verbose    bool
	dataDir    string
	jsonOutput bool
)

// CacheManager is the OCR text cache as seen by the cache commands.
type CacheManager interface {
	Stats() (mem, disk domain.CacheStats)
	Clear() error
}

// Services are the dependencies commands run against.
type Services struct {
	Config      *config.Config
	ConfigStore driven.ConfigStore
	Ingest      driving.IngestService
	Search      driving.SearchService
	Documents   driving.DocumentService
	Cache       CacheManager

	// OCREngine names the active OCR engine.
	OCREngine string
}

// Builder wires Services for a data directory; an empty dataDir selects the
// configured default. The returned function releases everything opened.
type Builder func(dataDir string) (*Services, func() error, error)

var (
	builder       Builder
	services      *Services
	closeServices func() error
)

// noServices marks commands that run without opening the store.
const noServices = "no-services"

// SetBuilder registers the function that wires services on first use.
func SetBuilder(b Builder) {
	builder = b
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "pdfsearch",
	Short: "Index PDF documents and search their text",
	Long: `pdfsearch ingests PDF documents into a local SQLite full-text index.
Page text is extracted directly and embedded images are run through OCR,
so scanned pages are searchable too.`,
	SilenceUsage:      true,
	PersistentPreRunE: prepare,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.pdfsearch)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
}

// prepare enables logging and wires services unless the command needs none
// or services were already provided.
func prepare(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if cmd.Annotations[noServices] == "true" || services != nil {
		return nil
	}
	if builder == nil {
		return errors.New("services not configured")
	}
	svc, closeFn, err := builder(dataDir)
	if err != nil {
		return err
	}
	services = svc
	closeServices = closeFn
	return nil
}

// Execute runs the root command and releases the services it opened.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if closeServices != nil {
		if cerr := closeServices(); cerr != nil && err == nil {
			err = cerr
		}
		closeServices = nil
		services = nil
	}
	return err
}

// printJSON writes v as indented JSON.
func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
