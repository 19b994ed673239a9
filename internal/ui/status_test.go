package ui

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStatus() StatusInfo {
	return StatusInfo{
		Index:           "catalog",
		SchemaPath:      "schema.yaml",
		HierarchyPath:   ".ancestry/hierarchy.yaml",
		Entities:        42,
		Documents:       40,
		EntityDBSize:    2048,
		SearchIndexSize: 3 * 1024 * 1024,
		HierarchyFields: map[string][]string{
			"collection": {"collection-memberOf"},
		},
		CandidateFields:  2,
		HierarchyBackups: 1,
	}
}

func TestStatusRenderer_Render(t *testing.T) {
	// Given: a status renderer without colors
	buf := &bytes.Buffer{}
	r := NewStatusRenderer(buf, true)

	// When: rendering
	require.NoError(t, r.Render(sampleStatus()))

	// Then: every section is present
	out := buf.String()
	assert.Contains(t, out, "Index Status: catalog")
	assert.Contains(t, out, "Entities:   42")
	assert.Contains(t, out, "Search index: 3.0 MB")
	assert.Contains(t, out, "collection: [collection-memberOf]")
	assert.Contains(t, out, "1 backups available")
}

func TestStatusRenderer_Render_NoFields(t *testing.T) {
	buf := &bytes.Buffer{}
	info := sampleStatus()
	info.HierarchyFields = nil

	require.NoError(t, NewStatusRenderer(buf, true).Render(info))
	assert.Contains(t, buf.String(), "none enabled")
}

func TestStatusRenderer_RenderJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, NewStatusRenderer(buf, true).RenderJSON(sampleStatus()))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	assert.Equal(t, "catalog", parsed["index"])
	assert.Equal(t, float64(42), parsed["entities"])
	assert.Contains(t, parsed, "hierarchy_fields")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", FormatBytes(512))
	assert.Equal(t, "2.0 KB", FormatBytes(2048))
	assert.Equal(t, "1.5 MB", FormatBytes(3*512*1024))
	assert.Equal(t, "2.0 GB", FormatBytes(2*1024*1024*1024))
}
