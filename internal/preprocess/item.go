// Package preprocess merges resolved ancestors into index items before they
// reach the search index.
package preprocess

import "sort"

// Item is one unit handed to the index. EntityID names the entity the item
// was built from.
type Item interface {
	ID() string
	EntityID() string
	// Field returns the named field, or nil when the item has none.
	Field(id string) *Field
}

// Field is the ordered value list of one index field.
type Field struct {
	values []string
}

// NewField creates a field holding values.
func NewField(values ...string) *Field {
	return &Field{values: append([]string(nil), values...)}
}

// Values returns the field's values in insertion order.
func (f *Field) Values() []string {
	return append([]string(nil), f.values...)
}

// AddValue appends v without checking for duplicates.
func (f *Field) AddValue(v string) {
	f.values = append(f.values, v)
}

// Document is an in-memory Item.
type Document struct {
	DocID      string
	Entity     string
	Datasource string
	Fields     map[string]*Field
}

// NewDocument creates an empty document for entityID.
func NewDocument(id, datasource, entityID string) *Document {
	return &Document{
		DocID:      id,
		Entity:     entityID,
		Datasource: datasource,
		Fields:     make(map[string]*Field),
	}
}

// ID implements Item.
func (d *Document) ID() string { return d.DocID }

// EntityID implements Item.
func (d *Document) EntityID() string { return d.Entity }

// Field implements Item.
func (d *Document) Field(id string) *Field {
	return d.Fields[id]
}

// SetField replaces a field's values.
func (d *Document) SetField(id string, values ...string) *Field {
	f := NewField(values...)
	d.Fields[id] = f
	return f
}

// FieldIDs returns the document's field ids in sorted order.
func (d *Document) FieldIDs() []string {
	ids := make([]string, 0, len(d.Fields))
	for id := range d.Fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
