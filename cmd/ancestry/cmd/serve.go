package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancestry/internal/logging"
	"github.com/Aman-CERP/ancestry/internal/mcp"
	"github.com/Aman-CERP/ancestry/internal/schema"
	"github.com/Aman-CERP/ancestry/internal/store"
	"github.com/Aman-CERP/ancestry/internal/ui"
	"github.com/Aman-CERP/ancestry/internal/watcher"
)

func newServeCmd() *cobra.Command {
	var (
		transport string
		noWatch   bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Serve hierarchy tools over the Model Context Protocol.

The schema file and the hierarchy file are watched. A change to the schema
reloads the hierarchy options, and a change to either file rebuilds the
search index in the background. Stdout carries protocol messages only;
logs go to ~/.ancestry/logs/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, transport, !noWatch)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "", "Transport to serve on (default from config: stdio)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not watch the schema and hierarchy files")

	return cmd
}

func runServe(ctx context.Context, transport string, watch bool) error {
	p, err := openProject(projectDir)
	if err != nil {
		return err
	}
	if transport == "" {
		transport = p.cfg.Server.Transport
	}

	// Stdout belongs to the protocol, so the server logs to file only.
	if !debugMode {
		cleanup, err := logging.SetupDefault(logging.ServerConfig(p.cfg.Server.LogLevel))
		if err != nil {
			return fmt.Errorf("failed to setup logging: %w", err)
		}
		defer cleanup()
	}

	s, err := p.loadSchema()
	if err != nil {
		return err
	}
	inspector, err := p.inspector(s)
	if err != nil {
		return err
	}
	entities, err := p.openEntities(false)
	if err != nil {
		return err
	}
	defer func() { _ = entities.Close() }()
	sink, err := p.openSearch()
	if err != nil {
		return err
	}
	defer func() { _ = sink.Close() }()

	srv, err := mcp.NewServer(mcp.Dependencies{
		IndexID:   p.indexID(),
		Inspector: inspector,
		Hierarchy: p.hierarchy,
		Entities:  entities,
		Search:    sink,
		Limits:    p.limits(),
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	defer wg.Wait()
	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if watch {
		r := &reloader{project: p, inspector: inspector, entities: entities, sink: sink}
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.watch(serveCtx)
		}()
	}

	return srv.Serve(serveCtx, transport)
}

// reloader keeps a running server in step with its schema and hierarchy
// files.
type reloader struct {
	project   *project
	inspector *schema.Inspector
	entities  *store.SQLiteEntities
	sink      *store.BleveSink
}

// watch starts a file watcher and dispatches its events until ctx is done.
func (r *reloader) watch(ctx context.Context) {
	d := watcher.NewDispatcher(slog.Default())
	d.Handle(r.project.schemaPath(), r.onSchemaChange)
	d.Handle(r.project.hierarchy.Path(), r.onHierarchyChange)

	w, err := watcher.NewFileWatcher(d.Paths(), watcher.Options{
		DebounceWindow: r.project.cfg.WatchDebounce(),
	})
	if err != nil {
		slog.Warn("watcher_start_failed", slog.String("error", err.Error()))
		return
	}
	defer func() { _ = w.Stop() }()

	go func() {
		if err := w.Start(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("watcher_stopped", slog.String("error", err.Error()))
		}
	}()
	slog.Info("watcher_started", slog.String("mode", w.Mode()), slog.Any("paths", w.Paths()))

	d.Run(ctx, w)
}

func (r *reloader) onSchemaChange(ctx context.Context, ev watcher.FileEvent) error {
	if ev.Operation == watcher.OpDelete {
		slog.Warn("schema_file_removed", slog.String("path", ev.Path))
		return nil
	}
	s, err := r.project.loadSchema()
	if err != nil {
		return err
	}
	r.inspector.Reload(s)
	return r.reindex(ctx)
}

func (r *reloader) onHierarchyChange(ctx context.Context, ev watcher.FileEvent) error {
	if ev.Operation == watcher.OpDelete {
		slog.Warn("hierarchy_file_removed", slog.String("path", ev.Path))
	}
	return r.reindex(ctx)
}

func (r *reloader) reindex(ctx context.Context) error {
	result, err := runIndex(ctx, r.project, r.inspector.Source(), r.entities, r.sink, ui.NopRenderer{})
	if err != nil {
		return err
	}
	slog.Info("reindex_complete",
		slog.Int("documents", result.Documents),
		slog.Int("values_added", result.Stats.ValuesAdded),
		slog.Duration("duration", result.Duration))
	return nil
}
