// Package index runs the indexing pipeline: entities are turned into
// documents, hierarchy fields are expanded with ancestors, and the result is
// written to the search index.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Aman-CERP/ancestry/internal/ancestry"
	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
	"github.com/Aman-CERP/ancestry/internal/hierarchy"
	"github.com/Aman-CERP/ancestry/internal/preprocess"
	"github.com/Aman-CERP/ancestry/internal/schema"
	"github.com/Aman-CERP/ancestry/internal/store"
	"github.com/Aman-CERP/ancestry/internal/ui"
)

// DefaultBatchSize is the number of documents preprocessed and written per
// batch.
const DefaultBatchSize = 500

// EntitySource lists entities and resolves their relations.
type EntitySource interface {
	ancestry.Store
	List(ctx context.Context, entityType string) ([]store.EntityRecord, error)
}

// Sink receives finished documents.
type Sink interface {
	Index(ctx context.Context, docs []*preprocess.Document) error
}

// RunnerConfig configures an indexing run.
type RunnerConfig struct {
	// IndexID names the index whose fields are built.
	IndexID string

	// BatchSize bounds documents per preprocess and sink call.
	BatchSize int

	// Workers bounds concurrent items during preprocessing.
	Workers int

	// CacheSize sizes the per-run entity cache.
	CacheSize int

	// Limits bounds each ancestor walk. The zero value selects
	// ancestry.DefaultLimits.
	Limits ancestry.Limits
}

// RunnerResult contains the outcome of an indexing run.
type RunnerResult struct {
	Entities  int
	Documents int
	Stats     preprocess.Stats
	Duration  time.Duration
	Errors    int
	Warnings  int
}

// RunnerDependencies contains the injected dependencies for Runner.
type RunnerDependencies struct {
	// Renderer for progress display. Defaults to ui.NopRenderer.
	Renderer ui.Renderer

	// Schema supplies the index field definitions (required).
	Schema schema.Source

	// Entities is the entity store (required).
	Entities EntitySource

	// Hierarchy holds the saved hierarchy configuration (required).
	Hierarchy hierarchy.Store

	// Sink is the search index (required).
	Sink Sink

	Logger *slog.Logger
}

// Runner executes indexing runs with progress reporting.
type Runner struct {
	renderer  ui.Renderer
	schema    schema.Source
	entities  EntitySource
	hierarchy hierarchy.Store
	sink      Sink
	logger    *slog.Logger
}

// NewRunner creates a Runner with injected dependencies.
func NewRunner(deps RunnerDependencies) (*Runner, error) {
	if deps.Schema == nil {
		return nil, fmt.Errorf("schema is required")
	}
	if deps.Entities == nil {
		return nil, fmt.Errorf("entity store is required")
	}
	if deps.Hierarchy == nil {
		return nil, fmt.Errorf("hierarchy store is required")
	}
	if deps.Sink == nil {
		return nil, fmt.Errorf("index sink is required")
	}
	if deps.Renderer == nil {
		deps.Renderer = ui.NopRenderer{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Runner{
		renderer:  deps.Renderer,
		schema:    deps.Schema,
		entities:  deps.Entities,
		hierarchy: deps.Hierarchy,
		sink:      deps.Sink,
		logger:    deps.Logger,
	}, nil
}

// Run builds every document of cfg.IndexID and writes it to the sink.
//
// The hierarchy configuration is read once at the start, so a change saved
// during a run takes effect on the next run. Per-item resolution failures
// are reported as warnings; store, sink and cancellation errors abort.
func (r *Runner) Run(ctx context.Context, cfg RunnerConfig) (*RunnerResult, error) {
	start := time.Now()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Limits == (ancestry.Limits{}) {
		cfg.Limits = ancestry.DefaultLimits()
	}

	fields, err := r.schema.Fields(cfg.IndexID)
	if err != nil {
		return nil, err
	}
	hcfg, err := r.hierarchy.Load()
	if err != nil {
		return nil, err
	}

	r.logger.Info("index_started",
		slog.String("index", cfg.IndexID),
		slog.Int("fields", len(fields)),
		slog.Int("hierarchy_fields", len(hcfg.FieldIDs())))

	docs, entities, err := r.buildDocuments(ctx, fields)
	if err != nil {
		return nil, err
	}

	cached, err := ancestry.NewCachedStore(r.entities, cfg.CacheSize)
	if err != nil {
		return nil, ancerrors.InternalError("failed to create entity cache", err)
	}
	resolver := ancestry.NewResolver(cached,
		ancestry.WithLimits(cfg.Limits),
		ancestry.WithLogger(r.logger))
	processor := preprocess.NewProcessor(cached, resolver,
		preprocess.WithWorkers(cfg.Workers),
		preprocess.WithLogger(r.logger))

	result := &RunnerResult{Entities: entities}
	for lo := 0; lo < len(docs); lo += cfg.BatchSize {
		hi := min(lo+cfg.BatchSize, len(docs))
		batch := docs[lo:hi]

		r.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageResolving,
			Current: lo,
			Total:   len(docs),
			Item:    batch[0].DocID,
		})
		stats, err := processor.Preprocess(ctx, items(batch), hcfg)
		if err != nil {
			return nil, err
		}
		result.Stats = addStats(result.Stats, stats)
		r.reportStats(stats)

		r.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageIndexing,
			Current: hi,
			Total:   len(docs),
			Item:    batch[len(batch)-1].DocID,
		})
		if err := r.sink.Index(ctx, batch); err != nil {
			r.renderer.AddError(ui.ErrorEvent{Err: err})
			return nil, err
		}
		result.Documents += len(batch)
	}

	result.Duration = time.Since(start)
	result.Errors = result.Stats.Failed
	result.Warnings = result.Stats.MissingEntity + result.Stats.Truncated

	r.renderer.Complete(ui.CompletionStats{
		Index:         cfg.IndexID,
		Entities:      result.Entities,
		Documents:     result.Documents,
		ValuesAdded:   result.Stats.ValuesAdded,
		Truncated:     result.Stats.Truncated,
		MissingEntity: result.Stats.MissingEntity,
		Duration:      result.Duration,
		Errors:        result.Errors,
		Warnings:      result.Warnings,
	})

	r.logger.Info("index_complete",
		slog.String("index", cfg.IndexID),
		slog.Int("entities", result.Entities),
		slog.Int("documents", result.Documents),
		slog.Int("values_added", result.Stats.ValuesAdded),
		slog.Int("truncated", result.Stats.Truncated),
		slog.Int("failed", result.Stats.Failed),
		slog.Int64("duration_ms", result.Duration.Milliseconds()))

	return result, nil
}

// buildDocuments creates one document per entity of every datasource used
// by fields. Each field takes the values of the first segment of its
// property path: the referenced id for references, the raw value otherwise.
func (r *Runner) buildDocuments(ctx context.Context, fields []schema.FieldDefinition) ([]*preprocess.Document, int, error) {
	byDatasource := make(map[string][]schema.FieldDefinition)
	for _, f := range fields {
		if f.Datasource == "" {
			continue
		}
		byDatasource[f.Datasource] = append(byDatasource[f.Datasource], f)
	}
	datasources := make([]string, 0, len(byDatasource))
	for ds := range byDatasource {
		datasources = append(datasources, ds)
	}
	sort.Strings(datasources)

	var docs []*preprocess.Document
	for _, ds := range datasources {
		r.renderer.UpdateProgress(ui.ProgressEvent{
			Stage:   ui.StageLoading,
			Message: fmt.Sprintf("Loading %s entities", ds),
		})
		records, err := r.entities.List(ctx, ds)
		if err != nil {
			return nil, 0, err
		}
		for _, rec := range records {
			doc := preprocess.NewDocument(rec.ID, ds, rec.ID)
			if rec.Label != "" {
				doc.SetField(store.FieldLabel, rec.Label)
			}
			for _, f := range byDatasource[ds] {
				doc.SetField(f.ID, fieldValues(rec, f.PropertyPath)...)
			}
			docs = append(docs, doc)
		}
		r.logger.Debug("index_datasource_loaded",
			slog.String("datasource", ds),
			slog.Int("entities", len(records)))
	}
	return docs, len(docs), nil
}

func fieldValues(rec store.EntityRecord, path string) []string {
	property, _, _ := strings.Cut(path, ".")
	values := make([]string, 0, len(rec.Properties[property]))
	for _, v := range rec.Properties[property] {
		if v.Ref != "" {
			values = append(values, v.Ref)
		} else if v.Raw != "" {
			values = append(values, v.Raw)
		}
	}
	return values
}

func (r *Runner) reportStats(stats preprocess.Stats) {
	if stats.MissingEntity > 0 {
		r.renderer.AddError(ui.ErrorEvent{
			Err:    fmt.Errorf("%d items reference missing entities", stats.MissingEntity),
			IsWarn: true,
		})
	}
	if stats.Truncated > 0 {
		r.renderer.AddError(ui.ErrorEvent{
			Err:    fmt.Errorf("%d ancestor walks hit a traversal limit", stats.Truncated),
			IsWarn: true,
		})
	}
	if stats.Failed > 0 {
		r.renderer.AddError(ui.ErrorEvent{
			Err: fmt.Errorf("%d hierarchy fields could not be resolved", stats.Failed),
		})
	}
}

func items(docs []*preprocess.Document) []preprocess.Item {
	out := make([]preprocess.Item, len(docs))
	for i, d := range docs {
		out[i] = d
	}
	return out
}

func addStats(a, b preprocess.Stats) preprocess.Stats {
	a.Items += b.Items
	a.FieldsUpdated += b.FieldsUpdated
	a.ValuesAdded += b.ValuesAdded
	a.MissingFields += b.MissingFields
	a.MissingEntity += b.MissingEntity
	a.Truncated += b.Truncated
	a.Failed += b.Failed
	a.Duration += b.Duration
	return a
}
