package ancestry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
)

// Default traversal limits. They are far above any real hierarchy and only
// stop runaway walks over corrupted data.
const (
	DefaultMaxVisited = 10000
	DefaultMaxDepth   = 256
)

// Limits bounds a single walk. Zero values disable the corresponding check.
type Limits struct {
	// MaxVisited is the number of ancestors whose relations may be read.
	// The start entity does not count.
	MaxVisited int
	// MaxDepth is the number of edges an ancestor may be away from start.
	MaxDepth int
}

// DefaultLimits returns the default traversal limits.
func DefaultLimits() Limits {
	return Limits{MaxVisited: DefaultMaxVisited, MaxDepth: DefaultMaxDepth}
}

// Resolver computes ancestor sets. It holds no per-walk state and is safe for
// concurrent use when its Store is.
type Resolver struct {
	store  Store
	limits Limits
	logger *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLimits overrides the traversal limits.
func WithLimits(l Limits) Option {
	return func(r *Resolver) {
		r.limits = l
	}
}

// WithLogger sets the logger for skipped branches and truncated walks.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a Resolver reading from store.
func NewResolver(store Store, opts ...Option) *Resolver {
	r := &Resolver{
		store:  store,
		limits: DefaultLimits(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type queued struct {
	id    string
	depth int
}

// FindAncestors walks breadth-first from start across every relation at once
// and returns each distinct entity reachable through them. start itself is
// never part of the result, even when a cycle leads back to it.
//
// Entities that cannot be resolved and properties that cannot be read are
// skipped. If a limit is hit the walk stops and the partial set is returned
// together with an ErrCodeTraversalLimit error. A cancelled context returns
// the partial set and ctx.Err().
func (r *Resolver) FindAncestors(ctx context.Context, start Entity, relations []string) (*Set, error) {
	result := NewSet()
	if start == nil || len(relations) == 0 {
		return result, nil
	}

	startID := start.ID()
	expanded := 0
	queue := []queued{{id: startID}}

	// Every id enters the queue at most once: start up front, ancestors when
	// they are first added to result.
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		cur := queue[0]
		queue = queue[1:]

		if cur.id != startID {
			if r.limits.MaxVisited > 0 && expanded >= r.limits.MaxVisited {
				return result, r.truncated(startID, "max_visited", r.limits.MaxVisited, result)
			}
			expanded++
		}

		entity, ok := r.resolve(ctx, cur.id, start)
		if !ok {
			continue
		}

		for _, relation := range relations {
			values, err := r.store.Property(ctx, entity, relation)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return result, ctxErr
				}
				r.logger.Debug("ancestry_property_skipped",
					slog.String("entity", cur.id),
					slog.String("relation", relation),
					slog.String("error", err.Error()))
				continue
			}

			for _, v := range values {
				if v.Ref == "" || v.Ref == startID || result.Has(v.Ref) {
					continue
				}
				if r.limits.MaxDepth > 0 && cur.depth+1 > r.limits.MaxDepth {
					return result, r.truncated(startID, "max_depth", r.limits.MaxDepth, result)
				}
				result.Add(v.Ref)
				queue = append(queue, queued{id: v.Ref, depth: cur.depth + 1})
			}
		}
	}

	return result, nil
}

// resolve returns the entity for id, using start directly for the root.
func (r *Resolver) resolve(ctx context.Context, id string, start Entity) (Entity, bool) {
	if id == start.ID() {
		return start, true
	}
	entity, err := r.store.Resolve(ctx, id)
	if err != nil {
		level := slog.LevelDebug
		if !errors.Is(err, ErrNotFound) && ctx.Err() == nil {
			level = slog.LevelWarn
		}
		r.logger.Log(ctx, level, "ancestry_entity_skipped",
			slog.String("entity", id),
			slog.String("error", err.Error()))
		return nil, false
	}
	return entity, true
}

func (r *Resolver) truncated(startID, limit string, value int, partial *Set) error {
	r.logger.Warn("ancestry_traversal_truncated",
		slog.String("start", startID),
		slog.String("limit", limit),
		slog.Int("value", value),
		slog.Int("ancestors", partial.Len()))
	return ancerrors.New(ancerrors.ErrCodeTraversalLimit,
		fmt.Sprintf("ancestor walk from %s stopped at %s=%d", startID, limit, value), nil).
		WithDetail("start", startID).
		WithDetail("limit", limit)
}
