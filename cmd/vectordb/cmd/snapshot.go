package cmd

import (
	"github.com/spf13/cobra"

	"github.com/vectordb/vectordb/internal/output"
	"github.com/vectordb/vectordb/internal/snapshot"
)

func newSnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save or load the full library set to/from disk",
		Long: `Every command already loads the configured snapshot on startup and
saves it back on exit; these subcommands let you target an explicit path,
for example to take a backup or restore from one.`,
	}
	cmd.AddCommand(newSnapshotSaveCmd())
	cmd.AddCommand(newSnapshotLoadCmd())
	return cmd
}

func newSnapshotSaveCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "save <path>",
		Short: "Save the current library set to path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.svc.SaveSnapshot(args[0], snapshot.Format(format)); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("saved snapshot to %s", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "binary", "snapshot format: text or binary")
	return cmd
}

func newSnapshotLoadCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "load <path>",
		Short: "Replace the current library set with the contents of path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.svc.LoadSnapshot(args[0], snapshot.Format(format)); err != nil {
				return err
			}
			output.New(cmd.OutOrStdout()).Successf("loaded snapshot from %s", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "binary", "snapshot format: text or binary")
	return cmd
}
