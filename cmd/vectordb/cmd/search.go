package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vectordb/vectordb/internal/output"
)

type searchOptions struct {
	libraryID string
	limit     int
	format    string
	filters   []string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a library for the k nearest chunks to a query",
		Long: `Search embeds the query text and returns the k nearest chunks in the
given library by cosine similarity.

Examples:
  vectordb search --library lib123 "quick brown fox"
  vectordb search --library lib123 --filter "lang == en" --limit 5 "setup instructions"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd, query, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.libraryID, "library", "L", "", "library id to search (required)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "maximum number of results")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "output format: text, json")
	cmd.Flags().StringSliceVar(&opts.filters, "filter", nil, "metadata filter clause, e.g. 'lang == en' (repeatable)")
	_ = cmd.MarkFlagRequired("library")

	return cmd
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	results, err := app.svc.Search(cmd.Context(), opts.libraryID, query, opts.limit, opts.filters)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		type jsonResult struct {
			ChunkID    string         `json:"chunk_id"`
			DocumentID string         `json:"document_id"`
			Score      float32        `json:"score"`
			Text       string         `json:"text"`
			Metadata   map[string]any `json:"metadata,omitempty"`
		}
		out := make([]jsonResult, len(results))
		for i, r := range results {
			out[i] = jsonResult{
				ChunkID:    r.Chunk.ID,
				DocumentID: r.Chunk.DocumentID,
				Score:      r.Score,
				Text:       r.Chunk.Text,
				Metadata:   r.Chunk.Metadata,
			}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	out := output.New(cmd.OutOrStdout())
	if len(results) == 0 {
		out.Status("", fmt.Sprintf("no results found for %q", query))
		return nil
	}

	out.Statusf("", "found %d results for %q:", len(results), query)
	out.Newline()
	for i, r := range results {
		out.Statusf("", "%d. %s (score: %.3f)", i+1, r.Chunk.ID, r.Score)
		out.Status("", "   "+truncate(r.Chunk.Text, 160))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
