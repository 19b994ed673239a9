package ui

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlainRenderer_UpdateProgress_OutputFormat(t *testing.T) {
	// Given: a plain renderer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: updating progress
	r.UpdateProgress(ProgressEvent{
		Stage:   StageResolving,
		Current: 50,
		Total:   100,
		Item:    "book-42",
	})

	// Then: output is correctly formatted
	assert.Equal(t, "[RESOLVE] 50/100 - book-42\n", buf.String())
}

func TestPlainRenderer_UpdateProgress_MessageOnly(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.UpdateProgress(ProgressEvent{Stage: StageLoading, Message: "Loading book entities"})
	r.UpdateProgress(ProgressEvent{Stage: StageLoading})

	assert.Equal(t, "[LOAD] Loading book entities\n", buf.String())
}

func TestPlainRenderer_NoANSICodes(t *testing.T) {
	// Given: a plain renderer writing to a buffer
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: rendering through all stages and errors
	for _, stage := range []Stage{StageLoading, StageResolving, StageIndexing, StageComplete} {
		r.UpdateProgress(ProgressEvent{Stage: stage, Current: 1, Total: 2, Message: "step"})
	}
	r.AddError(ErrorEvent{Err: errors.New("boom")})
	r.Complete(CompletionStats{Entities: 2, Documents: 2})

	// Then: output contains no ANSI escape codes
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestPlainRenderer_AddError(t *testing.T) {
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	r.AddError(ErrorEvent{Item: "book-1", Err: errors.New("entity not found"), IsWarn: true})
	r.AddError(ErrorEvent{Err: errors.New("sink closed")})

	assert.Contains(t, buf.String(), "WARN: book-1: entity not found")
	assert.Contains(t, buf.String(), "ERROR: sink closed")
	require.Len(t, r.Errors(), 2)
	assert.True(t, r.Errors()[0].IsWarn)
}

func TestPlainRenderer_Complete(t *testing.T) {
	// Given: a finished run with truncations
	buf := &bytes.Buffer{}
	r := NewPlainRenderer(NewConfig(buf))

	// When: completing
	r.Complete(CompletionStats{
		Entities:    10,
		Documents:   8,
		ValuesAdded: 12,
		Truncated:   1,
		Duration:    1500 * time.Millisecond,
		Warnings:    1,
	})

	// Then: the summary names counts and the truncation
	out := buf.String()
	assert.Contains(t, out, "Complete: 10 entities, 8 documents indexed in 1.5s (0 errors, 1 warnings)")
	assert.Contains(t, out, "Ancestors added: 12")
	assert.Contains(t, out, "Truncated walks: 1")
	assert.NotContains(t, out, "Missing entities")
}
