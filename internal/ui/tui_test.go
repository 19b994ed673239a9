package ui

import (
	"bytes"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestNewTUIRenderer_FailsForNonTTY(t *testing.T) {
	r, err := NewTUIRenderer(NewConfig(&bytes.Buffer{}))
	assert.Error(t, err)
	assert.Nil(t, r)
}

func TestIndexingModel_StageIndicators(t *testing.T) {
	// Given: a model in the resolving stage
	m := newIndexingModel("")
	m.Update(progressUpdateMsg{Stage: StageResolving, Current: 5, Total: 10, Item: "book-5"})

	// When: rendering
	view := m.View()

	// Then: all stages, the count and the current item are shown
	assert.Contains(t, view, "Ancestry Indexer")
	assert.Contains(t, view, "Loading")
	assert.Contains(t, view, "Resolving")
	assert.Contains(t, view, "Indexing")
	assert.Contains(t, view, "5 / 10 documents")
	assert.Contains(t, view, "book-5")
}

func TestIndexingModel_UnknownTotal(t *testing.T) {
	m := newIndexingModel("catalog")
	m.Update(progressUpdateMsg{Stage: StageLoading, Message: "Reading entities"})

	view := m.View()
	assert.Contains(t, view, "catalog")
	assert.Contains(t, view, "Reading entities")
}

func TestIndexingModel_CountsErrors(t *testing.T) {
	m := newIndexingModel("")
	m.Update(errorMsg{IsWarn: true})
	m.Update(errorMsg{IsWarn: true})
	m.Update(errorMsg{})

	view := m.View()
	assert.Contains(t, view, "2 warnings")
	assert.Contains(t, view, "1 errors")
}

func TestIndexingModel_Complete(t *testing.T) {
	// Given: a model receiving the completion message
	m := newIndexingModel("")
	_, cmd := m.Update(completeMsg{Entities: 3, Documents: 3, ValuesAdded: 4, Duration: 2 * time.Second})

	// Then: the program quits and the summary is shown
	assert.NotNil(t, cmd)
	view := m.View()
	assert.Contains(t, view, "Indexing Complete")
	assert.Contains(t, view, "2s")
}

func TestIndexingModel_QuitKey(t *testing.T) {
	m := newIndexingModel("")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.NotNil(t, cmd)
	assert.Equal(t, "Cancelled.\n", m.View())
}

func TestIndexingModel_WindowResize(t *testing.T) {
	m := newIndexingModel("")
	m.Update(tea.WindowSizeMsg{Width: 30, Height: 10})
	assert.Equal(t, 20, m.progressBar.Width)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond))
	assert.Equal(t, "45s", formatDuration(45*time.Second))
	assert.Equal(t, "2m", formatDuration(2*time.Minute))
	assert.Equal(t, "2m 5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h 1m", formatDuration(61*time.Minute))
}
