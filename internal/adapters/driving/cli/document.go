package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var pathCmd = &cobra.Command{
	Use:   "path [doc-id]",
	Short: "Print the file a document was ingested from",
	Args:  cobra.ExactArgs(1),
	RunE:  runPath,
}

var openCmd = &cobra.Command{
	Use:   "open [doc-id]",
	Short: "Open document in default application",
	Args:  cobra.ExactArgs(1),
	RunE:  runOpen,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Remove a document from the index",
	Long:  `Removes a document with its pages, image records, OCR text and index entries. The PDF file is not touched.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(statsCmd)
}

func documentID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid document id %q", arg)
	}
	return id, nil
}

func documentsConfigured() error {
	if services == nil || services.Documents == nil {
		return errors.New("document service not configured")
	}
	return nil
}

// documentOutput is the JSON form of a domain.Document.
type documentOutput struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Path         string `json:"path"`
	Status       string `json:"status"`
	CreatedAt    string `json:"created_at"`
	LastAccessed string `json:"last_accessed"`
}

const timeLayout = "2006-01-02 15:04:05"

func runList(cmd *cobra.Command, _ []string) error {
	if err := documentsConfigured(); err != nil {
		return err
	}

	docs, err := services.Documents.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if jsonOutput {
		out := make([]documentOutput, 0, len(docs))
		for _, d := range docs {
			out = append(out, documentOutput{
				ID:           d.ID,
				Name:         d.Name,
				Path:         d.Path,
				Status:       string(d.Status),
				CreatedAt:    d.CreatedAt.Format(timeLayout),
				LastAccessed: d.LastAccessed.Format(timeLayout),
			})
		}
		return printJSON(cmd, out)
	}

	if len(docs) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}

	t := newTable("ID", "NAME", "STATUS", "INGESTED", "PATH")
	for _, d := range docs {
		t.Row(strconv.FormatInt(d.ID, 10), d.Name, string(d.Status), d.CreatedAt.Format(timeLayout), d.Path)
	}
	cmd.Println(t.String())
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runPath(cmd *cobra.Command, args []string) error {
	if err := documentsConfigured(); err != nil {
		return err
	}
	id, err := documentID(args[0])
	if err != nil {
		return err
	}

	path, err := services.Documents.GetDocumentPath(cmd.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("document %d not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to get document path: %w", err)
	}

	cmd.Println(path)
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	if err := documentsConfigured(); err != nil {
		return err
	}
	id, err := documentID(args[0])
	if err != nil {
		return err
	}

	if err := services.Documents.Open(cmd.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %d not found", id)
		}
		return fmt.Errorf("failed to open document: %w", err)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := documentsConfigured(); err != nil {
		return err
	}
	id, err := documentID(args[0])
	if err != nil {
		return err
	}

	if err := services.Documents.Delete(cmd.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("document %d not found", id)
		}
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %d removed.\n", id)
	return nil
}

// statsOutput is the JSON form of the stats command.
type statsOutput struct {
	Documents int    `json:"documents"`
	Pending   int    `json:"pending"`
	Pages     int    `json:"pages"`
	Images    int    `json:"images"`
	OCRTexts  int    `json:"ocr_texts"`
	OCREngine string `json:"ocr_engine,omitempty"`
}

func runStats(cmd *cobra.Command, _ []string) error {
	if err := documentsConfigured(); err != nil {
		return err
	}

	st, err := services.Documents.Stats(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}

	out := statsOutput{
		Documents: st.Documents,
		Pending:   st.Pending,
		Pages:     st.Pages,
		Images:    st.Images,
		OCRTexts:  st.OCRTexts,
		OCREngine: services.OCREngine,
	}
	if jsonOutput {
		return printJSON(cmd, out)
	}

	cmd.Println(titleStyle.Render("Index"))
	cmd.Printf("  Documents:  %d", out.Documents)
	if out.Pending > 0 {
		cmd.Printf(" (%d incomplete)", out.Pending)
	}
	cmd.Println()
	cmd.Printf("  Pages:      %d\n", out.Pages)
	cmd.Printf("  Images:     %d\n", out.Images)
	cmd.Printf("  OCR texts:  %d\n", out.OCRTexts)
	if out.OCREngine != "" {
		cmd.Printf("  OCR engine: %s\n", out.OCREngine)
	}
	return nil
}
