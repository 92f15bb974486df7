package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vectordb/vectordb/internal/output"
)

func newChunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Manage chunks",
	}
	cmd.AddCommand(newChunkAddCmd())
	cmd.AddCommand(newChunkGetCmd())
	cmd.AddCommand(newChunkDeleteCmd())
	return cmd
}

func newChunkGetCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "get <chunk-id>",
		Short: "Print a chunk's text and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chunk, err := app.svc.GetChunk(args[0])
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(chunk)
			}

			out := output.New(cmd.OutOrStdout())
			out.Statusf("", "id:       %s", chunk.ID)
			out.Statusf("", "document: %s", chunk.DocumentID)
			out.Statusf("", "tokens:   %d", chunk.TokenCount)
			out.Statusf("", "text:     %s", chunk.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newChunkAddCmd() *cobra.Command {
	var metadataJSON string
	var fromFile string

	cmd := &cobra.Command{
		Use:   "add <document-id> [text]",
		Short: "Embed text and add it as a chunk of a document",
		Long: `Add embeds one piece of text as a single chunk.

With --from-file, each line of the file becomes its own chunk; all lines
are embedded concurrently and inserted as one batch, so a large file is
far faster to ingest than repeated single-chunk calls.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := parseMetadataJSON(metadataJSON)
			if err != nil {
				return err
			}

			if fromFile != "" {
				return addChunksFromFile(cmd, args[0], fromFile, metadata)
			}
			if len(args) != 2 {
				return fmt.Errorf("text argument is required unless --from-file is set")
			}

			chunk, err := app.svc.AddChunk(cmd.Context(), args[0], args[1], metadata)
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("created chunk %s", chunk.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&metadataJSON, "metadata", "", "chunk metadata as a JSON object, applied to every created chunk")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "read chunk text, one per line, from this file")
	return cmd
}

func addChunksFromFile(cmd *cobra.Command, documentID, path string, metadata map[string]any) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	var texts []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		texts = append(texts, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if len(texts) == 0 {
		return fmt.Errorf("%s contains no non-empty lines", path)
	}

	var metadatas []map[string]any
	if metadata != nil {
		metadatas = make([]map[string]any, len(texts))
		for i := range metadatas {
			metadatas[i] = metadata
		}
	}

	chunks, err := app.svc.AddChunks(cmd.Context(), documentID, texts, metadatas)
	if err != nil {
		return err
	}
	output.New(cmd.OutOrStdout()).Successf("created %d chunks from %s", len(chunks), path)
	return nil
}

func newChunkDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <chunk-id>",
		Short: "Delete a chunk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.svc.DeleteChunk(args[0]); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("deleted chunk %s", args[0])
			return nil
		},
	}
	return cmd
}
