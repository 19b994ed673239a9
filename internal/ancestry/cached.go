package ancestry

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of entities and property reads kept by a
// CachedStore.
const DefaultCacheSize = 4096

type propertyKey struct {
	entity   string
	property string
}

// CachedStore memoizes Resolve and Property calls of another Store. Items in
// one indexing batch usually share ancestors, so the upper levels of a
// hierarchy are read once per batch instead of once per item.
//
// Errors are not cached, except ErrNotFound. Purge between batches when the
// underlying data may have changed.
type CachedStore struct {
	next       Store
	entities   *lru.Cache[string, Entity]
	missing    *lru.Cache[string, struct{}]
	properties *lru.Cache[propertyKey, []Value]
}

// NewCachedStore wraps next with caches of the given size.
func NewCachedStore(next Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entities, err := lru.New[string, Entity](size)
	if err != nil {
		return nil, err
	}
	missing, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	properties, err := lru.New[propertyKey, []Value](size)
	if err != nil {
		return nil, err
	}
	return &CachedStore{
		next:       next,
		entities:   entities,
		missing:    missing,
		properties: properties,
	}, nil
}

// Resolve implements Store.
func (c *CachedStore) Resolve(ctx context.Context, id string) (Entity, error) {
	if e, ok := c.entities.Get(id); ok {
		return e, nil
	}
	if c.missing.Contains(id) {
		return nil, ErrNotFound
	}

	e, err := c.next.Resolve(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.missing.Add(id, struct{}{})
		}
		return nil, err
	}
	c.entities.Add(id, e)
	return e, nil
}

// Property implements Store.
func (c *CachedStore) Property(ctx context.Context, entity Entity, name string) ([]Value, error) {
	key := propertyKey{entity: entity.ID(), property: name}
	if values, ok := c.properties.Get(key); ok {
		return values, nil
	}

	values, err := c.next.Property(ctx, entity, name)
	if err != nil {
		return nil, err
	}
	c.properties.Add(key, values)
	return values, nil
}

// Invalidate drops everything cached about one entity.
func (c *CachedStore) Invalidate(id string) {
	c.entities.Remove(id)
	c.missing.Remove(id)
	for _, key := range c.properties.Keys() {
		if key.entity == id {
			c.properties.Remove(key)
		}
	}
}

// Purge empties all caches.
func (c *CachedStore) Purge() {
	c.entities.Purge()
	c.missing.Purge()
	c.properties.Purge()
}

// Len returns the number of cached entities and property reads.
func (c *CachedStore) Len() int {
	return c.entities.Len() + c.properties.Len()
}
