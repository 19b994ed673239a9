// Package hierarchy holds the operator's per-field selection of relation
// properties and validates submissions against discovered options.
package hierarchy

import (
	"fmt"
	"sort"
	"strings"

	ancerrors "github.com/Aman-CERP/ancestry/internal/errors"
	"github.com/Aman-CERP/ancestry/internal/schema"
)

// Configuration maps index field id to the relation keys combined when
// walking ancestors for that field.
type Configuration struct {
	Fields map[string][]string `yaml:"fields" json:"fields"`
}

// Default returns an empty configuration.
func Default() Configuration {
	return Configuration{Fields: map[string][]string{}}
}

// IsEmpty reports whether no field is configured.
func (c Configuration) IsEmpty() bool {
	return len(c.Fields) == 0
}

// FieldIDs returns the configured field ids in sorted order.
func (c Configuration) FieldIDs() []string {
	ids := make([]string, 0, len(c.Fields))
	for id, keys := range c.Fields {
		if len(keys) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Keys returns the relation keys configured for fieldID.
func (c Configuration) Keys(fieldID string) []string {
	return append([]string(nil), c.Fields[fieldID]...)
}

// Relations returns the bare relation property names configured for
// fieldID, with the entity type prefix stripped and duplicates removed.
// Keys without a prefix are skipped.
func (c Configuration) Relations(fieldID string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, key := range c.Fields[fieldID] {
		_, property, ok := schema.SplitRelationKey(key)
		if !ok {
			continue
		}
		if _, dup := seen[property]; dup {
			continue
		}
		seen[property] = struct{}{}
		out = append(out, property)
	}
	return out
}

// Check verifies the stored shape: at least one field, every field with at
// least one well-formed relation key.
func (c Configuration) Check() error {
	var errs ValidationErrors
	for _, id := range sortedKeys(c.Fields) {
		keys := c.Fields[id]
		if len(keys) == 0 {
			errs = append(errs, fieldNoRelations(id))
			continue
		}
		for _, key := range keys {
			if _, _, ok := schema.SplitRelationKey(key); !ok {
				errs = append(errs, ValidationError{
					Field:   id,
					Code:    ancerrors.ErrCodeInvalidRelationKey,
					Message: fmt.Sprintf("relation key %q must have the form <entity type>-<property>", key),
				})
			}
		}
	}
	if len(c.Fields) == 0 {
		errs = append(errs, noFieldsEnabled())
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// FieldSelection is the submitted state of one field.
type FieldSelection struct {
	Enabled  bool     `yaml:"enabled" json:"enabled"`
	Selected []string `yaml:"selected" json:"selected"`
}

// Submission is an operator's submitted selection, keyed by field id.
type Submission map[string]FieldSelection

// ValidationError ties a validation failure to the offending field.
// Field is empty for errors about the submission as a whole.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is every failure found in one submission.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// ForField returns the errors attached to fieldID.
func (e ValidationErrors) ForField(fieldID string) []ValidationError {
	var out []ValidationError
	for _, err := range e {
		if err.Field == fieldID {
			out = append(out, err)
		}
	}
	return out
}

// Validate checks a submission against the discovered options and returns
// the configuration to persist. On failure the error is ValidationErrors and
// the returned configuration must not be saved.
//
// Only enabled fields are kept; their keys are deduplicated and sorted.
func Validate(options schema.Options, submitted Submission) (Configuration, error) {
	var errs ValidationErrors
	cfg := Default()

	for _, fieldID := range sortedKeys(submitted) {
		sel := submitted[fieldID]
		if !sel.Enabled {
			continue
		}

		if _, ok := options[fieldID]; !ok {
			errs = append(errs, ValidationError{
				Field:   fieldID,
				Code:    ancerrors.ErrCodeFieldNotCandidate,
				Message: "field is not a hierarchy candidate",
			})
			continue
		}

		keys := dedupe(sel.Selected)
		if len(keys) == 0 {
			errs = append(errs, fieldNoRelations(fieldID))
			continue
		}

		valid := true
		for _, key := range keys {
			if !options.Has(fieldID, key) {
				errs = append(errs, ValidationError{
					Field:   fieldID,
					Code:    ancerrors.ErrCodeIllegalChoice,
					Message: fmt.Sprintf("illegal choice %q", key),
				})
				valid = false
			}
		}
		if valid {
			cfg.Fields[fieldID] = keys
		}
	}

	if !anyEnabled(submitted) {
		errs = append(errs, noFieldsEnabled())
	}

	if len(errs) > 0 {
		return Configuration{}, errs
	}
	return cfg, nil
}

func fieldNoRelations(fieldID string) ValidationError {
	return ValidationError{
		Field:   fieldID,
		Code:    ancerrors.ErrCodeFieldNoRelations,
		Message: "field requires at least one relation property",
	}
}

func noFieldsEnabled() ValidationError {
	return ValidationError{
		Code:    ancerrors.ErrCodeNoFieldsEnabled,
		Message: "at least one field must be enabled",
	}
}

func anyEnabled(submitted Submission) bool {
	for _, sel := range submitted {
		if sel.Enabled {
			return true
		}
	}
	return false
}

func dedupe(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
