package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancestry/internal/index"
	"github.com/Aman-CERP/ancestry/internal/schema"
	"github.com/Aman-CERP/ancestry/internal/store"
	"github.com/Aman-CERP/ancestry/internal/ui"
)

func newIndexCmd() *cobra.Command {
	var (
		noTUI bool
		force bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Build the search index with ancestor-expanded hierarchy fields",
		Long: `Build one document per entity of the index datasources, add the ancestors
of every referenced entity to the configured hierarchy fields, and write
the documents to the search index.

Use --force to delete the existing search index and rebuild from scratch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := openProject(projectDir)
			if err != nil {
				return err
			}
			if force {
				if err := os.RemoveAll(p.searchIndexPath()); err != nil {
					return fmt.Errorf("failed to clear search index: %w", err)
				}
				slog.Info("index_force_clear", slog.String("path", p.searchIndexPath()))
			}

			s, err := p.loadSchema()
			if err != nil {
				return err
			}
			entities, err := p.openEntities(true)
			if err != nil {
				return err
			}
			defer func() { _ = entities.Close() }()

			sink, err := p.openSearch()
			if err != nil {
				return err
			}
			defer func() { _ = sink.Close() }()

			uiCfg := ui.NewConfig(cmd.OutOrStdout(),
				ui.WithForcePlain(noTUI),
				ui.WithNoColor(ui.DetectNoColor()),
				ui.WithTitle("Indexing "+p.indexID()))
			renderer := ui.NewRenderer(uiCfg)
			if err := renderer.Start(ctx); err != nil {
				slog.Warn("failed to start progress renderer", slog.String("error", err.Error()))
			}
			defer func() { _ = renderer.Stop() }()

			_, err = runIndex(ctx, p, s, entities, sink, renderer)
			return err
		},
	}

	cmd.Flags().BoolVar(&noTUI, "no-tui", false, "Disable TUI mode, use plain text output")
	cmd.Flags().BoolVar(&force, "force", false, "Clear the existing search index and rebuild from scratch")

	return cmd
}

// runIndex performs one indexing run of the project's index.
func runIndex(ctx context.Context, p *project, src schema.Source, entities *store.SQLiteEntities, sink *store.BleveSink, renderer ui.Renderer) (*index.RunnerResult, error) {
	runner, err := index.NewRunner(index.RunnerDependencies{
		Renderer:  renderer,
		Schema:    src,
		Entities:  entities,
		Hierarchy: p.hierarchy,
		Sink:      sink,
	})
	if err != nil {
		return nil, err
	}

	return runner.Run(ctx, index.RunnerConfig{
		IndexID:   p.indexID(),
		BatchSize: p.cfg.Performance.BatchSize,
		Workers:   p.cfg.Performance.IndexWorkers,
		CacheSize: p.cfg.Traversal.EntityCacheSize,
		Limits:    p.limits(),
	})
}
