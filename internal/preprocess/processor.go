package preprocess

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/ancestry/internal/ancestry"
	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
	"github.com/Aman-CERP/ancestry/internal/hierarchy"
)

// Stats summarizes one Preprocess call.
type Stats struct {
	Items         int
	FieldsUpdated int
	ValuesAdded   int
	MissingFields int
	MissingEntity int
	Truncated     int
	Failed        int
	Duration      time.Duration
}

// Processor adds each item's ancestors to its hierarchy fields.
type Processor struct {
	store    ancestry.Store
	resolver *ancestry.Resolver
	workers  int
	logger   *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithWorkers bounds how many items are processed at once.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithLogger sets the processor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor creates a Processor that resolves item entities in store and
// walks them with resolver.
func NewProcessor(store ancestry.Store, resolver *ancestry.Resolver, opts ...Option) *Processor {
	p := &Processor{
		store:    store,
		resolver: resolver,
		workers:  runtime.NumCPU(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type counters struct {
	fieldsUpdated atomic.Int64
	valuesAdded   atomic.Int64
	missingFields atomic.Int64
	missingEntity atomic.Int64
	truncated     atomic.Int64
	failed        atomic.Int64
}

// Preprocess mutates items in place. For every field configured in cfg it
// appends the ancestors of the item's entity that the field does not already
// hold. Running it twice yields the same values as running it once.
//
// Failures stay scoped to one field of one item and are counted in the
// returned Stats. Only context cancellation is returned as an error.
func (p *Processor) Preprocess(ctx context.Context, items []Item, cfg hierarchy.Configuration) (Stats, error) {
	start := time.Now()
	stats := Stats{Items: len(items)}

	fieldIDs := cfg.FieldIDs()
	if len(fieldIDs) == 0 || len(items) == 0 {
		stats.Duration = time.Since(start)
		return stats, ctx.Err()
	}

	relations := make(map[string][]string, len(fieldIDs))
	for _, id := range fieldIDs {
		relations[id] = cfg.Relations(id)
	}

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return p.processItem(gctx, item, fieldIDs, relations, &c)
		})
	}
	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}

	stats.FieldsUpdated = int(c.fieldsUpdated.Load())
	stats.ValuesAdded = int(c.valuesAdded.Load())
	stats.MissingFields = int(c.missingFields.Load())
	stats.MissingEntity = int(c.missingEntity.Load())
	stats.Truncated = int(c.truncated.Load())
	stats.Failed = int(c.failed.Load())
	stats.Duration = time.Since(start)

	p.logger.Debug("preprocess_complete",
		slog.Int("items", stats.Items),
		slog.Int("fields_updated", stats.FieldsUpdated),
		slog.Int("values_added", stats.ValuesAdded),
		slog.Int("failed", stats.Failed),
		slog.Duration("duration", stats.Duration))

	return stats, err
}

func (p *Processor) processItem(ctx context.Context, item Item, fieldIDs []string, relations map[string][]string, c *counters) error {
	var entity ancestry.Entity

	for _, fieldID := range fieldIDs {
		if err := ctx.Err(); err != nil {
			return err
		}

		field := item.Field(fieldID)
		if field == nil {
			c.missingFields.Add(1)
			continue
		}
		rels := relations[fieldID]
		if len(rels) == 0 {
			continue
		}

		if entity == nil {
			e, err := p.store.Resolve(ctx, item.EntityID())
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if errors.Is(err, ancestry.ErrNotFound) {
					c.missingEntity.Add(1)
				} else {
					c.failed.Add(1)
				}
				p.logger.Warn("preprocess_entity_unresolved",
					slog.String("item", item.ID()),
					slog.String("entity", item.EntityID()),
					slog.String("error", err.Error()))
				return nil
			}
			entity = e
		}

		ancestors, err := p.resolver.FindAncestors(ctx, entity, rels)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if ancerrors.GetCode(err) != ancerrors.ErrCodeTraversalLimit {
				c.failed.Add(1)
				p.logger.Warn("preprocess_field_failed",
					slog.String("item", item.ID()),
					slog.String("field", fieldID),
					slog.String("error", err.Error()))
				continue
			}
			c.truncated.Add(1)
		}

		if added := merge(field, ancestors.IDs()); added > 0 {
			c.fieldsUpdated.Add(1)
			c.valuesAdded.Add(int64(added))
		}
	}
	return nil
}

// merge appends ids missing from field and returns how many were added.
func merge(field *Field, ids []string) int {
	present := make(map[string]struct{}, len(field.values)+len(ids))
	for _, v := range field.values {
		present[v] = struct{}{}
	}
	added := 0
	for _, id := range ids {
		if _, ok := present[id]; ok {
			continue
		}
		present[id] = struct{}{}
		field.AddValue(id)
		added++
	}
	return added
}
