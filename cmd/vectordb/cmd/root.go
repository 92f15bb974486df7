// Package cmd provides the CLI commands for vectordb.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vectordb/vectordb/internal/config"
	"github.com/vectordb/vectordb/internal/embedder"
	"github.com/vectordb/vectordb/internal/logging"
	"github.com/vectordb/vectordb/internal/service"
	"github.com/vectordb/vectordb/internal/snapshot"
	"github.com/vectordb/vectordb/pkg/version"
)

var (
	debugMode   bool
	projectDir  string
	loggingDone func()
)

// appContext bundles everything a subcommand needs: the effective
// configuration and a Service loaded from the on-disk snapshot, if any.
type appContext struct {
	cfg *config.Config
	svc *service.Service
	emb embedder.Embedder
}

var app *appContext

// NewRootCmd creates the root command for the vectordb CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "vectordb",
		Short:   "Local vector similarity search over libraries of documents and chunks",
		Version: version.Version,
		Long: `vectordb stores chunks of text as embedding vectors, grouped into
documents and libraries, and answers k-nearest-neighbor searches over them
using a brute-force, HNSW, or LSH index.

Each invocation loads its working set from a snapshot on disk (see
'vectordb config show' for the snapshot path), applies the requested
command, and saves the snapshot back before exiting.`,
		SilenceUsage: true,
	}
	cmd.SetVersionTemplate("vectordb version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&projectDir, "dir", ".", "project directory to load .vectordb.yaml from")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug logging to the vectordb log file")

	cmd.PersistentPreRunE = setupApp
	cmd.PersistentPostRunE = teardownApp

	cmd.AddCommand(newLibraryCmd())
	cmd.AddCommand(newDocumentCmd())
	cmd.AddCommand(newChunkCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSnapshotCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

func setupApp(cmd *cobra.Command, _ []string) error {
	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	logCfg.WriteToStderr = false
	if logger, cleanup, err := logging.Setup(logCfg); err == nil {
		loggingDone = cleanup
		slog.SetDefault(logger)
	}

	cfg, err := config.Load(projectDir)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	emb, err := newEmbedder(cmd.Context(), cfg.Embeddings)
	if err != nil {
		return fmt.Errorf("create embedder: %w", err)
	}

	svc := service.New(emb)
	if _, statErr := os.Stat(cfg.Storage.Path); statErr == nil {
		if err := svc.LoadSnapshot(cfg.Storage.Path, snapshot.Format(cfg.Storage.Format)); err != nil {
			return fmt.Errorf("load snapshot %s: %w", cfg.Storage.Path, err)
		}
		slog.Debug("snapshot loaded", slog.String("path", cfg.Storage.Path))
	}

	app = &appContext{cfg: cfg, svc: svc, emb: emb}
	return nil
}

func teardownApp(_ *cobra.Command, _ []string) error {
	defer func() {
		if loggingDone != nil {
			loggingDone()
			loggingDone = nil
		}
	}()

	if app == nil {
		return nil
	}
	defer func() { _ = app.emb.Close() }()

	if err := app.svc.SaveSnapshot(app.cfg.Storage.Path, snapshot.Format(app.cfg.Storage.Format)); err != nil {
		return fmt.Errorf("save snapshot %s: %w", app.cfg.Storage.Path, err)
	}
	slog.Debug("snapshot saved", slog.String("path", app.cfg.Storage.Path))
	return nil
}

// newEmbedder builds the embedding provider configured for this run. When
// CacheSize is positive, the provider (static or remote) is cache-wrapped so
// repeated CLI searches over the same query text within one process don't
// re-embed.
func newEmbedder(ctx context.Context, cfg config.EmbeddingsConfig) (embedder.Embedder, error) {
	var base embedder.Embedder
	switch cfg.Provider {
	case "remote":
		base = embedder.NewRemoteEmbedder(embedder.RemoteConfig{
			Host:       cfg.Host,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    cfg.Timeout,
		})
		if !base.Available(ctx) {
			slog.Warn("remote embedding provider unavailable at startup", slog.String("host", cfg.Host))
		}
	default:
		base = embedder.NewStaticEmbedder()
	}

	if cfg.CacheSize > 0 {
		return embedder.NewCachedEmbedder(base, cfg.CacheSize), nil
	}
	return base, nil
}
