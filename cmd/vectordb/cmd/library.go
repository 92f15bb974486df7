package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vectordb/vectordb/internal/entity"
	"github.com/vectordb/vectordb/internal/output"
)

func newLibraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "library",
		Aliases: []string{"lib"},
		Short:   "Manage libraries",
	}
	cmd.AddCommand(newLibraryCreateCmd())
	cmd.AddCommand(newLibraryListCmd())
	cmd.AddCommand(newLibraryDeleteCmd())
	return cmd
}

func newLibraryCreateCmd() *cobra.Command {
	var (
		description string
		kind        string
		dimension   int
	)

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.New(cmd.OutOrStdout())

			indexKind := entity.IndexKind(strings.ToUpper(kind))
			switch indexKind {
			case entity.IndexBruteForce, entity.IndexHNSW, entity.IndexLSH:
			default:
				return fmt.Errorf("unknown index kind %q (want BRUTE_FORCE, HNSW, or LSH)", kind)
			}

			lib, err := app.svc.CreateLibrary(args[0], description, indexKind, dimension)
			if err != nil {
				return err
			}
			out.Successf("created library %s (%s, dim=%d)", lib.ID, lib.IndexKind, lib.Dimension)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "library description")
	cmd.Flags().StringVar(&kind, "kind", "BRUTE_FORCE", "index kind: BRUTE_FORCE, HNSW, or LSH")
	cmd.Flags().IntVar(&dimension, "dimension", 256, "embedding dimension")

	return cmd
}

func newLibraryListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List libraries",
		RunE: func(cmd *cobra.Command, _ []string) error {
			libs := app.svc.ListLibraries()

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(libs)
			}

			out := output.New(cmd.OutOrStdout())
			if len(libs) == 0 {
				out.Status("", "no libraries")
				return nil
			}
			for _, lib := range libs {
				out.Statusf("", "%s  %-20s kind=%-11s dim=%d  docs=%d",
					lib.ID, lib.Name, lib.IndexKind, lib.Dimension, len(lib.DocumentIDs))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newLibraryDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <library-id>",
		Short: "Delete a library and everything it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.svc.DeleteLibrary(args[0]); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("deleted library %s", args[0])
			return nil
		},
	}
	return cmd
}
