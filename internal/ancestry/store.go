// Package ancestry walks parent edges of an entity graph and collects every
// ancestor reachable through a set of relation properties.
package ancestry

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store.Resolve when an entity does not exist or
// is not accessible.
var ErrNotFound = errors.New("entity not found")

// Entity is a node of the entity graph.
type Entity interface {
	ID() string
	Type() string
}

// Value is one value of a property. Ref holds the referenced entity id when
// the value points at an entity and is empty otherwise.
type Value struct {
	Raw string
	Ref string
}

// Store gives typed access to entities and their property values.
type Store interface {
	// Resolve loads an entity by id. Missing entities yield ErrNotFound.
	Resolve(ctx context.Context, id string) (Entity, error)

	// Property returns the values of a property, in stored order. An unset
	// property yields no values and no error.
	Property(ctx context.Context, entity Entity, name string) ([]Value, error)
}

// Node is a plain Entity implementation.
type Node struct {
	EntityID   string
	EntityType string
}

// ID returns the entity id.
func (n Node) ID() string { return n.EntityID }

// Type returns the entity type id.
func (n Node) Type() string { return n.EntityType }
