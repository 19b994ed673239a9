package schema

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
)

// maxUnwrap bounds list unwrapping in InnerProperty.
const maxUnwrap = 8

// Source supplies index field definitions and navigates the definition tree.
type Source interface {
	// Fields returns the field definitions of an index.
	Fields(indexID string) ([]FieldDefinition, error)

	// DataDefinition resolves the data definition backing a field.
	// Stale or broken field references return an error.
	DataDefinition(field FieldDefinition) (*DataDefinition, error)

	// NestedProperties lists the properties beneath def: the properties of a
	// complex type, or the properties of the referenced entity type.
	NestedProperties(def *DataDefinition) []*PropertyDefinition

	// InnerProperty unwraps list wrappers down to the concrete definition.
	InnerProperty(def *DataDefinition) *DataDefinition
}

// machineName matches entity type ids. They never contain "-", which
// separates the two halves of a relation key.
var machineName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// EntityType is an entity type with its property definitions.
type EntityType struct {
	ID         string
	Label      string
	Properties []*PropertyDefinition
}

// Schema is a Source backed by a YAML schema file.
type Schema struct {
	entityTypes map[string]*EntityType
	indexes     map[string][]FieldDefinition
	order       []string
}

// Verify interface implementation at compile time
var _ Source = (*Schema)(nil)

type fileSchema struct {
	EntityTypes []fileEntityType `yaml:"entity_types"`
	Indexes     []fileIndex      `yaml:"indexes"`
}

type fileEntityType struct {
	ID         string         `yaml:"id"`
	Label      string         `yaml:"label"`
	Properties []fileProperty `yaml:"properties"`
}

type fileProperty struct {
	Name       string         `yaml:"name"`
	Label      string         `yaml:"label"`
	Type       string         `yaml:"type"`
	Target     string         `yaml:"target"`
	Item       *fileProperty  `yaml:"item"`
	Properties []fileProperty `yaml:"properties"`
}

type fileIndex struct {
	ID     string      `yaml:"id"`
	Fields []fileField `yaml:"fields"`
}

type fileField struct {
	ID         string `yaml:"id"`
	Label      string `yaml:"label"`
	Datasource string `yaml:"datasource"`
	Path       string `yaml:"path"`
}

// LoadSchema reads and parses a schema file.
func LoadSchema(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, ancerrors.New(ancerrors.ErrCodeConfigNotFound,
			fmt.Sprintf("failed to read schema file %s", path), err)
	}
	return ParseSchema(data)
}

// ParseSchema parses a YAML schema document.
//
// Entity type ids must be machine names, and every entity reference must
// target a declared entity type. Index field property paths are not checked
// here; a broken path surfaces per field during discovery.
func ParseSchema(data []byte) (*Schema, error) {
	var fs fileSchema
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, ancerrors.SchemaError("failed to parse schema", err)
	}

	s := &Schema{
		entityTypes: make(map[string]*EntityType, len(fs.EntityTypes)),
		indexes:     make(map[string][]FieldDefinition, len(fs.Indexes)),
	}

	for _, et := range fs.EntityTypes {
		if !machineName.MatchString(et.ID) {
			return nil, ancerrors.SchemaError(fmt.Sprintf("invalid entity type id %q", et.ID), nil)
		}
		if _, dup := s.entityTypes[et.ID]; dup {
			return nil, ancerrors.SchemaError(fmt.Sprintf("duplicate entity type %q", et.ID), nil)
		}
		s.entityTypes[et.ID] = &EntityType{ID: et.ID, Label: labelOr(et.Label, et.ID)}
	}

	// Properties are converted in a second pass so references can point
	// at entity types declared later in the file.
	for _, et := range fs.EntityTypes {
		props, err := s.convertProperties(et.Properties)
		if err != nil {
			return nil, ancerrors.SchemaError(fmt.Sprintf("entity type %q", et.ID), err)
		}
		s.entityTypes[et.ID].Properties = props
	}

	for _, idx := range fs.Indexes {
		if idx.ID == "" {
			return nil, ancerrors.SchemaError("index id is required", nil)
		}
		if _, dup := s.indexes[idx.ID]; dup {
			return nil, ancerrors.SchemaError(fmt.Sprintf("duplicate index %q", idx.ID), nil)
		}
		seen := make(map[string]bool, len(idx.Fields))
		fields := make([]FieldDefinition, 0, len(idx.Fields))
		for _, f := range idx.Fields {
			if f.ID == "" || seen[f.ID] {
				return nil, ancerrors.SchemaError(fmt.Sprintf("index %q: missing or duplicate field id %q", idx.ID, f.ID), nil)
			}
			seen[f.ID] = true
			fields = append(fields, FieldDefinition{
				ID:           f.ID,
				Label:        labelOr(f.Label, f.ID),
				Datasource:   f.Datasource,
				PropertyPath: f.Path,
			})
		}
		s.indexes[idx.ID] = fields
		s.order = append(s.order, idx.ID)
	}

	return s, nil
}

func (s *Schema) convertProperties(in []fileProperty) ([]*PropertyDefinition, error) {
	out := make([]*PropertyDefinition, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, fp := range in {
		if fp.Name == "" || seen[fp.Name] {
			return nil, fmt.Errorf("missing or duplicate property name %q", fp.Name)
		}
		seen[fp.Name] = true
		def, err := s.convertDefinition(fp)
		if err != nil {
			return nil, fmt.Errorf("property %q: %w", fp.Name, err)
		}
		out = append(out, &PropertyDefinition{
			Name:       fp.Name,
			Label:      labelOr(fp.Label, fp.Name),
			Definition: def,
		})
	}
	return out, nil
}

func (s *Schema) convertDefinition(fp fileProperty) (*DataDefinition, error) {
	label := labelOr(fp.Label, fp.Name)
	switch fp.Type {
	case "entity":
		if _, ok := s.entityTypes[fp.Target]; !ok {
			return nil, fmt.Errorf("unknown target entity type %q", fp.Target)
		}
		return &DataDefinition{
			Kind:       KindEntity,
			DataType:   "entity:" + fp.Target,
			Label:      label,
			TargetType: fp.Target,
		}, nil

	case "reference":
		// Shorthand for the usual multi-valued reference field: a list of
		// items each exposing the raw target id and the referenced entity.
		if _, ok := s.entityTypes[fp.Target]; !ok {
			return nil, fmt.Errorf("unknown target entity type %q", fp.Target)
		}
		return &DataDefinition{
			Kind:     KindList,
			DataType: "list",
			Label:    label,
			Item: &DataDefinition{
				Kind:     KindComplex,
				DataType: "reference_item",
				Label:    label,
				Properties: []*PropertyDefinition{
					{Name: "target_id", Label: "Target ID", Definition: &DataDefinition{Kind: KindScalar, DataType: "string", Label: "Target ID"}},
					{Name: "entity", Label: "Entity", Definition: &DataDefinition{
						Kind:       KindEntity,
						DataType:   "entity:" + fp.Target,
						Label:      "Entity",
						TargetType: fp.Target,
					}},
				},
			},
		}, nil

	case "list":
		if fp.Item == nil {
			return nil, fmt.Errorf("list requires an item definition")
		}
		item, err := s.convertDefinition(*fp.Item)
		if err != nil {
			return nil, err
		}
		return &DataDefinition{Kind: KindList, DataType: "list", Label: label, Item: item}, nil

	case "complex":
		props, err := s.convertProperties(fp.Properties)
		if err != nil {
			return nil, err
		}
		return &DataDefinition{Kind: KindComplex, DataType: "complex", Label: label, Properties: props}, nil

	case "":
		return nil, fmt.Errorf("type is required")

	default:
		return &DataDefinition{Kind: KindScalar, DataType: fp.Type, Label: label}, nil
	}
}

// EntityType returns the entity type with the given id.
func (s *Schema) EntityType(id string) (*EntityType, bool) {
	et, ok := s.entityTypes[id]
	return et, ok
}

// Indexes returns the declared index ids in file order.
func (s *Schema) Indexes() []string {
	return append([]string(nil), s.order...)
}

// Fields implements Source.
func (s *Schema) Fields(indexID string) ([]FieldDefinition, error) {
	fields, ok := s.indexes[indexID]
	if !ok {
		return nil, ancerrors.New(ancerrors.ErrCodeConfigInvalid,
			fmt.Sprintf("index %q is not declared in the schema", indexID), nil)
	}
	return append([]FieldDefinition(nil), fields...), nil
}

// DataDefinition implements Source. An empty property path resolves to the
// datasource entity itself.
func (s *Schema) DataDefinition(field FieldDefinition) (*DataDefinition, error) {
	et, ok := s.entityTypes[field.Datasource]
	if !ok {
		return nil, ancerrors.New(ancerrors.ErrCodeDefinitionUnresolved,
			fmt.Sprintf("field %q: unknown datasource %q", field.ID, field.Datasource), nil)
	}

	def := &DataDefinition{
		Kind:       KindEntity,
		DataType:   "entity:" + et.ID,
		Label:      et.Label,
		TargetType: et.ID,
	}
	if field.PropertyPath == "" {
		return def, nil
	}

	for _, segment := range strings.Split(field.PropertyPath, ".") {
		next := findProperty(s.NestedProperties(s.InnerProperty(def)), segment)
		if next == nil {
			return nil, ancerrors.New(ancerrors.ErrCodeDefinitionUnresolved,
				fmt.Sprintf("field %q: property path %q does not resolve at %q", field.ID, field.PropertyPath, segment), nil)
		}
		def = next.Definition
	}
	return def, nil
}

// NestedProperties implements Source.
func (s *Schema) NestedProperties(def *DataDefinition) []*PropertyDefinition {
	if def == nil {
		return nil
	}
	switch def.Kind {
	case KindComplex:
		return def.Properties
	case KindEntity:
		if et, ok := s.entityTypes[def.TargetType]; ok {
			return et.Properties
		}
	}
	return nil
}

// InnerProperty implements Source.
func (s *Schema) InnerProperty(def *DataDefinition) *DataDefinition {
	for i := 0; i < maxUnwrap && def != nil && def.Kind == KindList; i++ {
		def = def.Item
	}
	return def
}

func findProperty(props []*PropertyDefinition, name string) *PropertyDefinition {
	for _, p := range props {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func labelOr(label, fallback string) string {
	if label != "" {
		return label
	}
	return fallback
}

// ReferenceTarget reports the entity type a property definition points at.
// Lists are unwrapped, and a complex wrapper counts when one of its direct
// properties is an entity reference.
func (s *Schema) ReferenceTarget(def *DataDefinition) (string, bool) {
	inner := s.InnerProperty(def)
	if inner == nil {
		return "", false
	}
	switch inner.Kind {
	case KindEntity:
		return inner.TargetType, true
	case KindComplex:
		for _, p := range inner.Properties {
			if nested := s.InnerProperty(p.Definition); nested != nil && nested.Kind == KindEntity {
				return nested.TargetType, true
			}
		}
	}
	return "", false
}
