package ancestry

import (
	"context"
	"sync"
)

// MemoryStore is a Store held in maps. It backs tests and small graphs
// loaded from fixtures.
type MemoryStore struct {
	mu         sync.RWMutex
	entities   map[string]Node
	properties map[string]map[string][]Value
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entities:   make(map[string]Node),
		properties: make(map[string]map[string][]Value),
	}
}

// Put adds or replaces an entity.
func (m *MemoryStore) Put(id, entityType string) Node {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := Node{EntityID: id, EntityType: entityType}
	m.entities[id] = n
	return n
}

// Link sets a reference property of id to the given target ids.
func (m *MemoryStore) Link(id, property string, targets ...string) {
	values := make([]Value, len(targets))
	for i, t := range targets {
		values[i] = Value{Raw: t, Ref: t}
	}
	m.Set(id, property, values...)
}

// Set replaces the values of a property.
func (m *MemoryStore) Set(id, property string, values ...Value) {
	m.mu.Lock()
	defer m.mu.Unlock()
	props, ok := m.properties[id]
	if !ok {
		props = make(map[string][]Value)
		m.properties[id] = props
	}
	props[property] = values
}

// Delete removes an entity and its properties.
func (m *MemoryStore) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entities, id)
	delete(m.properties, id)
}

// Resolve implements Store.
func (m *MemoryStore) Resolve(_ context.Context, id string) (Entity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.entities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return n, nil
}

// Property implements Store.
func (m *MemoryStore) Property(_ context.Context, entity Entity, name string) ([]Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	values := m.properties[entity.ID()][name]
	return append([]Value(nil), values...), nil
}
