package schema

import (
	"log/slog"
)

// Discover finds hierarchy candidate fields and their relation properties.
//
// A field whose definition cannot be resolved is logged and skipped; the
// rest of the pass continues. Fields without any option are omitted.
func Discover(src Source, indexID string, fields []FieldDefinition, logger *slog.Logger) Options {
	if logger == nil {
		logger = slog.Default()
	}

	opts := make(Options)
	for _, field := range fields {
		def, err := src.DataDefinition(field)
		if err != nil {
			logger.Warn("hierarchy_field_unresolved",
				slog.String("index", indexID),
				slog.String("field", field.ID),
				slog.String("datasource", field.Datasource),
				slog.String("error", err.Error()))
			continue
		}

		// The field itself is the zero-depth candidate.
		candidates := []*PropertyDefinition{{
			Name:       field.ID,
			Label:      field.Label,
			Definition: def,
		}}
		if inner := src.InnerProperty(def); inner != nil && inner.Kind == KindComplex {
			candidates = append(candidates, src.NestedProperties(inner)...)
		}

		found := make(map[string]string)
		for _, candidate := range candidates {
			inner := src.InnerProperty(candidate.Definition)
			if inner == nil || inner.Kind != KindEntity {
				continue
			}
			for key, label := range findHierarchicalProperties(src, inner, candidate.Label) {
				found[key] = label
			}
		}

		if len(found) > 0 {
			opts[field.ID] = found
			logger.Debug("hierarchy_field_discovered",
				slog.String("index", indexID),
				slog.String("field", field.ID),
				slog.Int("options", len(found)))
		}
	}
	return opts
}

// findHierarchicalProperties lists the properties of the entity type ref
// points to that reference that same entity type, either directly (depth 1)
// or through one complex wrapper such as a reference item (depth 2).
func findHierarchicalProperties(src Source, ref *DataDefinition, label string) map[string]string {
	entityType := ref.TargetType
	found := make(map[string]string)

	for _, p := range src.NestedProperties(ref) {
		inner := src.InnerProperty(p.Definition)
		if inner == nil {
			continue
		}

		candidate := inner.References(entityType)
		if !candidate && inner.Kind == KindComplex {
			for _, q := range src.NestedProperties(inner) {
				if src.InnerProperty(q.Definition).References(entityType) {
					candidate = true
					break
				}
			}
		}

		if candidate {
			found[RelationKey(entityType, p.Name)] = optionLabel(label, p.Label)
		}
	}
	return found
}
