package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStage_String(t *testing.T) {
	tests := []struct {
		stage Stage
		name  string
		icon  string
	}{
		{StageLoading, "Loading", "LOAD"},
		{StageResolving, "Resolving", "RESOLVE"},
		{StageIndexing, "Indexing", "INDEX"},
		{StageComplete, "Complete", "DONE"},
		{Stage(99), "Unknown", "???"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.stage.String())
			assert.Equal(t, tt.icon, tt.stage.Icon())
		})
	}
}

func TestIsTTY_WithBuffer_ReturnsFalse(t *testing.T) {
	assert.False(t, IsTTY(&bytes.Buffer{}))
	assert.False(t, IsTTY(nil))
}

func TestNewConfig_WithOptions(t *testing.T) {
	// Given: options for plain, no-color output with a title
	buf := &bytes.Buffer{}

	// When: building the config
	cfg := NewConfig(buf, WithForcePlain(true), WithNoColor(true), WithTitle("catalog"))

	// Then: every option is applied
	assert.Same(t, buf, cfg.Output)
	assert.True(t, cfg.ForcePlain)
	assert.True(t, cfg.NoColor)
	assert.Equal(t, "catalog", cfg.Title)
}

func TestNewRenderer_NonTTY_ReturnsPlainRenderer(t *testing.T) {
	// Given: a buffer, which is never a terminal
	r := NewRenderer(NewConfig(&bytes.Buffer{}))

	// Then: the plain renderer is chosen
	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestNewRenderer_ForcePlain_ReturnsPlainRenderer(t *testing.T) {
	r := NewRenderer(NewConfig(&bytes.Buffer{}, WithForcePlain(true)))
	_, ok := r.(*PlainRenderer)
	assert.True(t, ok)
}

func TestDetectNoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.True(t, DetectNoColor())
}

func TestDetectCI(t *testing.T) {
	t.Setenv("CI", "true")
	assert.True(t, DetectCI())
}

func TestNopRenderer(t *testing.T) {
	var r Renderer = NopRenderer{}
	assert.NoError(t, r.Start(t.Context()))
	r.UpdateProgress(ProgressEvent{Stage: StageLoading})
	r.AddError(ErrorEvent{})
	r.Complete(CompletionStats{})
	assert.NoError(t, r.Stop())
}
