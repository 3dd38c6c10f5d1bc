package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/pdfsearch/internal/core/domain"
)

var (
	searchPage      int
	searchPageSize  int
	searchSubstring bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Searches page text and OCR text of every ingested document.
Results are ordered by how recently each document appeared in a search,
and pages through them with --page.

The full-text index matches word prefixes; --substring matches the raw
text instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchPage, "page", "p", 1, "result page to show")
	searchCmd.Flags().IntVarP(&searchPageSize, "page-size", "n", 0, "results per page (default from config)")
	searchCmd.Flags().BoolVar(&searchSubstring, "substring", false, "match substrings instead of using the index")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if services == nil || services.Search == nil {
		return errors.New("search service not configured")
	}

	q := domain.SearchQuery{
		Term:     strings.Join(args, " "),
		Page:     searchPage,
		PageSize: searchPageSize,
		UseIndex: !searchSubstring,
	}
	if cfg := services.Config; cfg != nil {
		if q.PageSize <= 0 {
			q.PageSize = cfg.Search.PageSize
		}
		q.UseIndex = q.UseIndex && cfg.Search.UseIndex
	}

	result := services.Search.Search(cmd.Context(), q)

	if jsonOutput {
		return printJSON(cmd, toSearchOutput(q.Term, result))
	}
	return outputSearchResults(cmd, q.Term, result)
}

// searchOutput is the JSON form of a domain.SearchPage.
type searchOutput struct {
	Query      string      `json:"query"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
	Total      int         `json:"total"`
	Hits       []hitOutput `json:"hits"`
}

type hitOutput struct {
	DocumentID int64  `json:"document_id"`
	Name       string `json:"name"`
	Page       int    `json:"page"`
	Source     string `json:"source"`
	Snippet    string `json:"snippet"`
}

func toSearchOutput(term string, result domain.SearchPage) searchOutput {
	out := searchOutput{
		Query:      term,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages(),
		Total:      result.Total,
		Hits:       make([]hitOutput, 0, len(result.Hits)),
	}
	for _, h := range result.Hits {
		out.Hits = append(out.Hits, hitOutput{
			DocumentID: h.DocumentID,
			Name:       h.Name,
			Page:       h.PageNumber,
			Source:     string(h.Source),
			Snippet:    h.Snippet,
		})
	}
	return out
}

func outputSearchResults(cmd *cobra.Command, term string, result domain.SearchPage) error {
	if len(result.Hits) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println(titleStyle.Render("Results for \"" + term + "\""))
	cmd.Println(mutedStyle.Render(pageSummary(result)))
	cmd.Println()
	first := (result.Page-1)*result.PageSize + 1
	for i, hit := range result.Hits {
		cmd.Printf("  [%d] %s, page %d %s\n", first+i, hit.Name, hit.PageNumber,
			mutedStyle.Render("("+string(hit.Source)+")"))
		if hit.Snippet != "" {
			cmd.Printf("      %s\n", highlightSnippet(hit.Snippet))
		}
		cmd.Println()
	}
	return nil
}

func pageSummary(result domain.SearchPage) string {
	noun := "hits"
	if result.Total == 1 {
		noun = "hit"
	}
	return fmt.Sprintf("page %d of %d, %d %s", result.Page, result.TotalPages(), result.Total, noun)
}
