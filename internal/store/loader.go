package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/ancestry/internal/ancestry"
	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
	"github.com/Aman-CERP/ancestry/internal/schema"
)

type entityFile struct {
	Entities []fileEntity `yaml:"entities"`
}

type fileEntity struct {
	ID         string                `yaml:"id"`
	Type       string                `yaml:"type"`
	Label      string                `yaml:"label"`
	Properties map[string]stringList `yaml:"properties"`
}

// stringList accepts either a single scalar or a sequence of scalars.
type stringList []string

func (l *stringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*l = nil
			return nil
		}
		*l = []string{node.Value}
		return nil
	case yaml.SequenceNode:
		var values []string
		if err := node.Decode(&values); err != nil {
			return err
		}
		*l = values
		return nil
	default:
		return fmt.Errorf("line %d: property values must be a scalar or a list", node.Line)
	}
}

// ParseEntities decodes an entity file. Values of properties the schema
// declares as entity references become references; all others stay raw.
func ParseEntities(data []byte, s *schema.Schema) ([]EntityRecord, error) {
	var file entityFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, ancerrors.New(ancerrors.ErrCodeInvalidInput, "failed to parse entity file", err)
	}

	records := make([]EntityRecord, 0, len(file.Entities))
	seen := make(map[string]struct{}, len(file.Entities))
	for _, fe := range file.Entities {
		if fe.ID == "" {
			return nil, ancerrors.ValidationError("entity without id", nil).WithDetail("type", fe.Type)
		}
		if _, dup := seen[fe.ID]; dup {
			return nil, ancerrors.ValidationError(fmt.Sprintf("duplicate entity id %q", fe.ID), nil)
		}
		seen[fe.ID] = struct{}{}

		et, ok := s.EntityType(fe.Type)
		if !ok {
			return nil, ancerrors.ValidationError(
				fmt.Sprintf("entity %q has unknown type %q", fe.ID, fe.Type), nil)
		}

		defs := make(map[string]*schema.DataDefinition, len(et.Properties))
		for _, p := range et.Properties {
			defs[p.Name] = p.Definition
		}

		r := EntityRecord{
			ID:         fe.ID,
			Type:       fe.Type,
			Label:      fe.Label,
			Properties: make(map[string][]ancestry.Value, len(fe.Properties)),
		}
		for name, raw := range fe.Properties {
			def, ok := defs[name]
			if !ok {
				return nil, ancerrors.ValidationError(
					fmt.Sprintf("entity %q: type %q has no property %q", fe.ID, fe.Type, name), nil)
			}
			_, isRef := s.ReferenceTarget(def)
			values := make([]ancestry.Value, 0, len(raw))
			for _, v := range raw {
				val := ancestry.Value{Raw: v}
				if isRef {
					val.Ref = v
				}
				values = append(values, val)
			}
			r.Properties[name] = values
		}
		records = append(records, r)
	}
	return records, nil
}

// LoadEntitiesFile reads an entity file and writes every entity to dst.
// It returns the number of entities written.
func LoadEntitiesFile(ctx context.Context, dst *SQLiteEntities, path string, s *schema.Schema) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, ancerrors.New(ancerrors.ErrCodeInvalidInput, "failed to read entity file", err).
			WithDetail("path", path)
	}
	records, err := ParseEntities(data, s)
	if err != nil {
		return 0, err
	}
	if err := dst.Put(ctx, records...); err != nil {
		return 0, err
	}
	return len(records), nil
}
