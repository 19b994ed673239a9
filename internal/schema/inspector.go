package schema

import (
	"log/slog"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultOptionsCacheSize is the number of indexes whose options are kept.
const DefaultOptionsCacheSize = 64

// Inspector discovers hierarchy options per index and caches the result.
//
// The cache is keyed by index id and has no time-based expiry. Callers must
// call Invalidate when an index's field definitions change, or Reload when
// the whole source is replaced. Recomputing an entry is idempotent, so a
// race between two computations of the same index is harmless.
type Inspector struct {
	mu         sync.RWMutex
	source     Source
	generation uint64
	cache      *lru.Cache[string, Options]
	logger     *slog.Logger
}

// InspectorOption configures an Inspector.
type InspectorOption func(*inspectorConfig)

type inspectorConfig struct {
	cacheSize int
	logger    *slog.Logger
}

// WithCacheSize bounds how many indexes keep cached options.
func WithCacheSize(n int) InspectorOption {
	return func(c *inspectorConfig) {
		c.cacheSize = n
	}
}

// WithLogger sets the logger used for discovery diagnostics.
func WithLogger(logger *slog.Logger) InspectorOption {
	return func(c *inspectorConfig) {
		c.logger = logger
	}
}

// NewInspector creates an Inspector over source.
func NewInspector(source Source, opts ...InspectorOption) (*Inspector, error) {
	cfg := inspectorConfig{
		cacheSize: DefaultOptionsCacheSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cacheSize <= 0 {
		cfg.cacheSize = DefaultOptionsCacheSize
	}

	cache, err := lru.New[string, Options](cfg.cacheSize)
	if err != nil {
		return nil, err
	}

	return &Inspector{
		source: source,
		cache:  cache,
		logger: cfg.logger,
	}, nil
}

// Options returns the hierarchy options of an index, computing and caching
// them on first access. The returned map is a copy and safe to modify.
func (i *Inspector) Options(indexID string) (Options, error) {
	if cached, ok := i.cache.Get(indexID); ok {
		return cached.Clone(), nil
	}

	i.mu.RLock()
	src, gen := i.source, i.generation
	i.mu.RUnlock()

	fields, err := src.Fields(indexID)
	if err != nil {
		return nil, err
	}

	opts := Discover(src, indexID, fields, i.logger)

	i.mu.RLock()
	// Skip caching if the source was swapped while discovering.
	if i.generation == gen {
		i.cache.Add(indexID, opts)
	}
	i.mu.RUnlock()

	return opts.Clone(), nil
}

// Invalidate drops the cached options of an index.
func (i *Inspector) Invalidate(indexID string) {
	i.cache.Remove(indexID)
	i.logger.Debug("hierarchy_options_invalidated", slog.String("index", indexID))
}

// Reload replaces the definition source and drops every cached entry.
func (i *Inspector) Reload(source Source) {
	i.mu.Lock()
	i.source = source
	i.generation++
	i.cache.Purge()
	i.mu.Unlock()
	i.logger.Info("hierarchy_options_reloaded")
}

// Source returns the current definition source.
func (i *Inspector) Source() Source {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.source
}
