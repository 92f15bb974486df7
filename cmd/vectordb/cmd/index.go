package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/vectordb/vectordb/internal/output"
	"github.com/vectordb/vectordb/internal/ui"
)

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Manage a library's search index",
	}
	cmd.AddCommand(newIndexRebuildCmd())
	return cmd
}

func newIndexRebuildCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "rebuild <library-id>",
		Short: "Discard and reconstruct a library's index from its current chunks",
		Long: `Rebuild reconstructs a library's index from scratch from the chunks
it currently owns. Use it after changing index parameters, or to compact
away tombstoned entries left by many deletions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := app.svc.GetLibrary(args[0])
			if err != nil {
				return err
			}

			renderer := ui.NewRenderer(ui.NewConfig(cmd.OutOrStdout(),
				ui.WithForcePlain(plain),
				ui.WithLibraryName(lib.Name)))
			if err := renderer.Start(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = renderer.Stop() }()

			start := time.Now()
			renderer.UpdateProgress(ui.ProgressEvent{Stage: ui.StageBuilding, Message: "rebuilding index"})
			if err := app.svc.RebuildIndex(args[0]); err != nil {
				renderer.AddError(ui.ErrorEvent{Err: err})
				return err
			}

			renderer.Complete(ui.CompletionStats{
				Duration: time.Since(start),
				Stages:   ui.StageTimings{Build: time.Since(start)},
			})

			output.New(cmd.OutOrStdout()).Successf("rebuilt index for library %s", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "force plain-text progress output (no TUI)")
	return cmd
}
