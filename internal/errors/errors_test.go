package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAncestryError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	err := New(ErrCodeStoreFailed, "query entity", originalErr)

	require.NotNil(t, err)
	assert.Equal(t, originalErr, errors.Unwrap(err))
	assert.True(t, errors.Is(err, originalErr))
}

func TestAncestryError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "config error",
			code:     ErrCodeConfigNotFound,
			message:  "config file not found",
			expected: "[ERR_101_CONFIG_NOT_FOUND] config file not found",
		},
		{
			name:     "store error",
			code:     ErrCodeEntityNotFound,
			message:  "entity c-1 not found",
			expected: "[ERR_201_ENTITY_NOT_FOUND] entity c-1 not found",
		},
		{
			name:     "traversal error",
			code:     ErrCodeTraversalLimit,
			message:  "visited limit reached",
			expected: "[ERR_301_TRAVERSAL_LIMIT] visited limit reached",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestAncestryError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeEntityNotFound, "entity A not found", nil)
	err2 := New(ErrCodeEntityNotFound, "entity B not found", nil)
	err3 := New(ErrCodeConfigNotFound, "config not found", nil)

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
	assert.True(t, errors.Is(fmt.Errorf("resolve: %w", err1), err2))
}

func TestAncestryError_WithDetail(t *testing.T) {
	err := New(ErrCodeEntityNotFound, "entity not found", nil).
		WithDetail("entity_id", "c-9").
		WithDetail("relation", "memberOf")

	assert.Equal(t, "c-9", err.Details["entity_id"])
	assert.Equal(t, "memberOf", err.Details["relation"])
}

func TestAncestryError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeConfigNotFound, CategoryConfig},
		{ErrCodeSchemaInvalid, CategoryConfig},
		{ErrCodeEntityNotFound, CategoryStore},
		{ErrCodeStoreBusy, CategoryStore},
		{ErrCodeTraversalLimit, CategoryTraversal},
		{ErrCodeFieldNoRelations, CategoryValidation},
		{ErrCodeIllegalChoice, CategoryValidation},
		{ErrCodeInternal, CategoryInternal},
		{ErrCodeIndexFailed, CategoryInternal},
		{"BAD", CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestAncestryError_SeverityAndRetryable(t *testing.T) {
	tests := []struct {
		code          string
		wantSeverity  Severity
		wantRetryable bool
	}{
		{ErrCodeCorruptIndex, SeverityFatal, false},
		{ErrCodeStoreBusy, SeverityWarning, true},
		{ErrCodeTraversalLimit, SeverityWarning, false},
		{ErrCodeDefinitionUnresolved, SeverityWarning, false},
		{ErrCodeEntityNotFound, SeverityError, false},
		{ErrCodeNoFieldsEnabled, SeverityError, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap(t *testing.T) {
	originalErr := errors.New("something went wrong")

	err := Wrap(ErrCodeInternal, originalErr)

	require.NotNil(t, err)
	assert.Equal(t, ErrCodeInternal, err.Code)
	assert.Equal(t, "something went wrong", err.Message)
	assert.Equal(t, originalErr, err.Cause)
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestConstructors_SetCategory(t *testing.T) {
	assert.Equal(t, CategoryConfig, ConfigError("bad yaml", nil).Category)
	assert.Equal(t, CategoryConfig, SchemaError("unknown target", nil).Category)
	assert.Equal(t, CategoryStore, StoreError("query failed", nil).Category)
	assert.Equal(t, CategoryValidation, ValidationError("empty id", nil).Category)
	assert.Equal(t, CategoryInternal, InternalError("boom", nil).Category)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"busy store", New(ErrCodeStoreBusy, "database is locked", nil), true},
		{"wrapped busy store", fmt.Errorf("resolve: %w", New(ErrCodeStoreBusy, "locked", nil)), true},
		{"not found", New(ErrCodeEntityNotFound, "missing", nil), false},
		{"standard error", errors.New("standard error"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeCorruptIndex, "index corrupt", nil)))
	assert.False(t, IsFatal(New(ErrCodeEntityNotFound, "missing", nil)))
	assert.False(t, IsFatal(errors.New("standard error")))
}

func TestGetCode(t *testing.T) {
	assert.Equal(t, ErrCodeIllegalChoice, GetCode(New(ErrCodeIllegalChoice, "x", nil)))
	assert.Equal(t, "", GetCode(errors.New("plain")))
}
