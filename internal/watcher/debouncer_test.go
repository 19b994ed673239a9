package watcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan []FileEvent, timeout time.Duration) []FileEvent {
	t.Helper()
	select {
	case events := <-ch:
		return events
	case <-time.After(timeout):
		t.Fatal("timeout waiting for events")
		return nil
	}
}

func TestDebouncer_SingleEventPassesThrough(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "/p/schema.yaml", Operation: OpModify})

	events := receive(t, d.Output(), time.Second)
	require.Len(t, events, 1)
	assert.Equal(t, OpModify, events[0].Operation)
}

func TestDebouncer_BurstCoalescesAndSorts(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Add(FileEvent{Path: "/p/schema.yaml", Operation: OpModify})
	}
	d.Add(FileEvent{Path: "/p/hierarchy.yaml", Operation: OpModify})

	events := receive(t, d.Output(), time.Second)
	require.Len(t, events, 2)
	assert.Equal(t, "/p/hierarchy.yaml", events[0].Path)
	assert.Equal(t, "/p/schema.yaml", events[1].Path)
}

func TestCoalesce(t *testing.T) {
	tests := []struct {
		name  string
		first Operation
		next  Operation
		want  Operation
		keep  bool
	}{
		{"create then modify", OpCreate, OpModify, OpCreate, true},
		{"create then delete", OpCreate, OpDelete, 0, false},
		{"modify then delete", OpModify, OpDelete, OpDelete, true},
		{"delete then create", OpDelete, OpCreate, OpModify, true},
		{"modify then modify", OpModify, OpModify, OpModify, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := coalesce(tt.first, FileEvent{Path: "f", Operation: tt.next})
			assert.Equal(t, tt.keep, keep)
			if keep {
				assert.Equal(t, tt.want, got.Operation)
			}
		})
	}
}

func TestDebouncer_CreateThenDeleteEmitsNothing(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	d.Add(FileEvent{Path: "/p/tmp.yaml", Operation: OpCreate})
	d.Add(FileEvent{Path: "/p/tmp.yaml", Operation: OpDelete})

	select {
	case events := <-d.Output():
		t.Fatalf("unexpected events: %v", events)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDebouncer_StopIsIdempotent(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	d.Stop()
	d.Stop()
	d.Add(FileEvent{Path: "ignored"})

	_, ok := <-d.Output()
	assert.False(t, ok)
}
