package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vectordb/vectordb/internal/config"
	"github.com/vectordb/vectordb/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage user and project configuration",
		Long: `Manage vectordb's layered configuration.

Configuration precedence (lowest to highest):
  1. Hardcoded defaults
  2. User config (~/.config/vectordb/config.yaml)
  3. Project config (.vectordb.yaml)
  4. Environment variables (VECTORDB_*)`,
		Example: `  # Create the user config file from defaults
  vectordb config init

  # Show the effective configuration (merged from all sources)
  vectordb config show

  # Print the user config file path
  vectordb config path`,
	}
	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the user configuration file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())
			path := config.GetUserConfigPath()

			if config.UserConfigExists() && !force {
				out.Status("", fmt.Sprintf("config already exists at %s (use --force to overwrite)", path))
				return nil
			}

			if err := config.NewConfig().WriteYAML(path); err != nil {
				return fmt.Errorf("write user config: %w", err)
			}
			out.Successf("created user config at %s", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration file")
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(app.cfg)
			}
			data, err := yaml.Marshal(app.cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the user configuration file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.GetUserConfigPath()
			if _, err := os.Stat(path); err != nil {
				output.New(cmd.OutOrStdout()).Statusf("", "%s (not yet created, run 'vectordb config init')", path)
				return nil
			}
			output.New(cmd.OutOrStdout()).Status("", path)
			return nil
		},
	}
	return cmd
}
