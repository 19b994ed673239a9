package mcp

// HierarchyOptionsInput defines the input schema for the hierarchy_options tool.
type HierarchyOptionsInput struct{}

// HierarchyOptionsOutput lists the hierarchy candidate fields of the index.
type HierarchyOptionsOutput struct {
	Index  string         `json:"index"`
	Fields []FieldOptions `json:"fields" jsonschema:"candidate fields and the relation properties offered for each"`
}

// FieldOptions are the relation properties offered for one field.
type FieldOptions struct {
	Field   string           `json:"field"`
	Enabled bool             `json:"enabled" jsonschema:"true if the field is currently configured"`
	Options []RelationOption `json:"options"`
}

// RelationOption is one selectable relation property.
type RelationOption struct {
	Key      string `json:"key" jsonschema:"relation key of the form <entity type>-<property>"`
	Label    string `json:"label"`
	Selected bool   `json:"selected"`
}

// ConfigureInput defines the input schema for the configure_hierarchy tool.
type ConfigureInput struct {
	Fields []FieldSelectionInput `json:"fields" jsonschema:"one entry per field to enable or disable"`
}

// FieldSelectionInput enables a field with a set of relation keys.
type FieldSelectionInput struct {
	Field     string   `json:"field"`
	Enabled   bool     `json:"enabled"`
	Relations []string `json:"relations,omitempty" jsonschema:"relation keys taken from hierarchy_options"`
}

// ConfigureOutput reports the outcome of configure_hierarchy. Nothing is
// saved when Errors is non-empty.
type ConfigureOutput struct {
	Saved  bool                `json:"saved"`
	Fields map[string][]string `json:"fields,omitempty"`
	Errors []FieldErrorOutput  `json:"errors,omitempty"`
}

// FieldErrorOutput is one validation error.
type FieldErrorOutput struct {
	Field   string `json:"field,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FindAncestorsInput defines the input schema for the find_ancestors tool.
type FindAncestorsInput struct {
	EntityID  string   `json:"entity_id" jsonschema:"id of the entity whose ancestors are listed"`
	Field     string   `json:"field,omitempty" jsonschema:"use the relations configured for this field"`
	Relations []string `json:"relations,omitempty" jsonschema:"relation property names or keys, overrides field"`
}

// FindAncestorsOutput lists the ancestors of an entity in discovery order.
type FindAncestorsOutput struct {
	EntityID  string   `json:"entity_id"`
	Relations []string `json:"relations"`
	Ancestors []string `json:"ancestors"`
	Truncated bool     `json:"truncated,omitempty" jsonschema:"true if a traversal limit stopped the walk early"`
}

// SearchWithinInput defines the input schema for the search_within tool.
type SearchWithinInput struct {
	Field      string `json:"field" jsonschema:"hierarchy field to filter on"`
	AncestorID string `json:"ancestor_id" jsonschema:"only return documents below this entity"`
	Query      string `json:"query,omitempty" jsonschema:"optional text matched against document labels"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results, default 10"`
}

// SearchWithinOutput lists matching documents.
type SearchWithinOutput struct {
	Results []SearchHit `json:"results"`
}

// SearchHit is one search result.
type SearchHit struct {
	ID       string  `json:"id"`
	EntityID string  `json:"entity_id"`
	Label    string  `json:"label,omitempty"`
	Score    float64 `json:"score"`
}
