package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vectordb/vectordb/internal/output"
)

func newDocumentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "document",
		Aliases: []string{"doc"},
		Short:   "Manage documents",
	}
	cmd.AddCommand(newDocumentAddCmd())
	cmd.AddCommand(newDocumentDeleteCmd())
	return cmd
}

func newDocumentAddCmd() *cobra.Command {
	var metadataJSON string

	cmd := &cobra.Command{
		Use:   "add <library-id> <name>",
		Short: "Add a document to a library",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			metadata, err := parseMetadataJSON(metadataJSON)
			if err != nil {
				return err
			}

			doc, err := app.svc.AddDocument(args[0], args[1], metadata)
			if err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("created document %s", doc.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&metadataJSON, "metadata", "", "document metadata as a JSON object")
	return cmd
}

func newDocumentDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <document-id>",
		Short: "Delete a document and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.svc.DeleteDocument(args[0]); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("deleted document %s", args[0])
			return nil
		},
	}
	return cmd
}

func parseMetadataJSON(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil, fmt.Errorf("parse --metadata as JSON: %w", err)
	}
	return metadata, nil
}
