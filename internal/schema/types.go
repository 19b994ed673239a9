// Package schema models entity property definitions and discovers which
// index fields can be walked as a self-referential hierarchy.
//
// Definitions form a tree: complex types hold named properties, list types
// wrap an item definition, and entity definitions reference an entity type
// whose own properties continue the tree. Discovery walks this tree to a
// fixed depth beneath an entity-typed field, so it always terminates even
// when entity types reference themselves.
package schema

import (
	"sort"
	"strings"
)

// Kind classifies a data definition.
type Kind int

const (
	// KindScalar is a leaf value (string, integer, boolean, ...).
	KindScalar Kind = iota
	// KindComplex holds named sub-properties.
	KindComplex
	// KindEntity references an entity of TargetType.
	KindEntity
	// KindList wraps an item definition.
	KindList
)

// String returns the schema file spelling of the kind.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindComplex:
		return "complex"
	case KindEntity:
		return "entity"
	case KindList:
		return "list"
	default:
		return "unknown"
	}
}

// DataDefinition describes the value type of a property or index field.
type DataDefinition struct {
	Kind Kind

	// DataType is the declared type name ("string", "complex", "entity:collection", ...).
	DataType string

	Label string

	// TargetType is the referenced entity type id. Set for KindEntity only.
	TargetType string

	// Properties are the nested properties. Set for KindComplex only.
	Properties []*PropertyDefinition

	// Item is the wrapped definition. Set for KindList only.
	Item *DataDefinition
}

// References reports whether d is a reference to entities of entityType.
func (d *DataDefinition) References(entityType string) bool {
	return d != nil && d.Kind == KindEntity && d.TargetType == entityType
}

// PropertyDefinition is a named property within a complex type or entity type.
type PropertyDefinition struct {
	Name       string
	Label      string
	Definition *DataDefinition
}

// FieldDefinition is a field of a search index. Its data is read from
// PropertyPath (dot separated) on entities of the Datasource entity type.
type FieldDefinition struct {
	ID           string
	Label        string
	Datasource   string
	PropertyPath string
}

// Options maps index field id to the relation properties offered for it,
// keyed by relation key with a human label as value.
type Options map[string]map[string]string

// Fields returns the candidate field ids in sorted order.
func (o Options) Fields() []string {
	fields := make([]string, 0, len(o))
	for id := range o {
		fields = append(fields, id)
	}
	sort.Strings(fields)
	return fields
}

// Keys returns the relation keys offered for fieldID in sorted order.
func (o Options) Keys(fieldID string) []string {
	keys := make([]string, 0, len(o[fieldID]))
	for k := range o[fieldID] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Has reports whether key is offered for fieldID.
func (o Options) Has(fieldID, key string) bool {
	_, ok := o[fieldID][key]
	return ok
}

// Clone returns a deep copy so cached options cannot be mutated by callers.
func (o Options) Clone() Options {
	out := make(Options, len(o))
	for field, keys := range o {
		inner := make(map[string]string, len(keys))
		for k, v := range keys {
			inner[k] = v
		}
		out[field] = inner
	}
	return out
}

// RelationKey builds the option key for property on entityType.
func RelationKey(entityType, property string) string {
	return entityType + "-" + property
}

// SplitRelationKey splits a relation key into entity type id and property
// name. Entity type ids never contain '-', so the first '-' is the separator.
func SplitRelationKey(key string) (entityType, property string, ok bool) {
	entityType, property, ok = strings.Cut(key, "-")
	if !ok || entityType == "" || property == "" {
		return "", "", false
	}
	return entityType, property, true
}

// optionLabel joins a field label and a property label for display.
func optionLabel(label, propertyLabel string) string {
	return label + " » " + propertyLabel
}
