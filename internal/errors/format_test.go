package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatForUser_BasicError(t *testing.T) {
	err := New(ErrCodeEntityNotFound, "entity 'c-42' not found", nil)

	result := FormatForUser(err, false)

	assert.Contains(t, result, "entity 'c-42' not found")
	assert.Contains(t, result, "[ERR_201_ENTITY_NOT_FOUND]")
}

func TestFormatForUser_WithSuggestion(t *testing.T) {
	err := New(ErrCodeFieldNoRelations, "field 'member_of' requires at least one relation property", nil).
		WithSuggestion("Pass --relation collection-memberOf")

	result := FormatForUser(err, false)

	assert.Contains(t, result, "Suggestion:")
	assert.Contains(t, result, "--relation")
}

func TestFormatForUser_StandardError(t *testing.T) {
	result := FormatForUser(errors.New("something went wrong"), false)

	assert.Equal(t, "something went wrong", result)
}

func TestFormatForUser_WrappedAncestryError(t *testing.T) {
	inner := New(ErrCodeTraversalLimit, "visited limit reached", nil)
	err := fmt.Errorf("resolve ancestors: %w", inner)

	result := FormatForUser(err, false)

	assert.Contains(t, result, "visited limit reached")
	assert.Contains(t, result, ErrCodeTraversalLimit)
}

func TestFormatForUser_NilError(t *testing.T) {
	assert.Empty(t, FormatForUser(nil, false))
}

func TestFormatForLog_IncludesDetails(t *testing.T) {
	err := New(ErrCodeTraversalLimit, "visited limit reached", nil).
		WithDetail("start", "d")

	attrs := FormatForLog(err)

	assert.Equal(t, ErrCodeTraversalLimit, attrs["error_code"])
	assert.Equal(t, string(SeverityWarning), attrs["severity"])
	assert.Equal(t, "d", attrs["detail_start"])
}

func TestFormatForUser_DebugIncludesCauseAndDetails(t *testing.T) {
	err := New(ErrCodeStoreFailed, "query failed", errors.New("no such table: entities")).
		WithDetail("entity_id", "c-1")

	result := FormatForUser(err, true)

	assert.Contains(t, result, "Cause: no such table: entities")
	assert.Contains(t, result, "entity_id: c-1")
	assert.NotContains(t, FormatForUser(err, false), "no such table")
}
