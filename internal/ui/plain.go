package ui

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// PlainRenderer outputs plain text progress (for CI/pipes).
type PlainRenderer struct {
	mu     sync.Mutex
	out    io.Writer
	styles Styles
	errors []ErrorEvent
}

// NewPlainRenderer creates a plain text renderer. Colors are applied only
// when the output is a terminal and NoColor is unset.
func NewPlainRenderer(cfg Config) *PlainRenderer {
	noColor := cfg.NoColor || DetectNoColor() || !IsTTY(cfg.Output)
	return &PlainRenderer{
		out:    cfg.Output,
		styles: GetStyles(noColor),
	}
}

// Start implements Renderer.
func (r *PlainRenderer) Start(ctx context.Context) error {
	return nil
}

// UpdateProgress implements Renderer.
func (r *PlainRenderer) UpdateProgress(event ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	msg := event.Message
	if msg == "" {
		msg = event.Item
	}
	tag := r.styles.Stage.Render("[" + event.Stage.Icon() + "]")

	if event.Total > 0 {
		_, _ = fmt.Fprintf(r.out, "%s %d/%d - %s\n", tag, event.Current, event.Total, msg)
	} else if msg != "" {
		_, _ = fmt.Fprintf(r.out, "%s %s\n", tag, msg)
	}
}

// AddError implements Renderer.
func (r *PlainRenderer) AddError(event ErrorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errors = append(r.errors, event)

	prefix := r.styles.Error.Render("ERROR")
	if event.IsWarn {
		prefix = r.styles.Warning.Render("WARN")
	}

	if event.Item != "" {
		_, _ = fmt.Fprintf(r.out, "%s: %s: %v\n", prefix, event.Item, event.Err)
	} else {
		_, _ = fmt.Fprintf(r.out, "%s: %v\n", prefix, event.Err)
	}
}

// Complete implements Renderer.
func (r *PlainRenderer) Complete(stats CompletionStats) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, "%s %d entities, %d documents indexed in %s",
		r.styles.Success.Render("Complete:"),
		stats.Entities, stats.Documents, stats.Duration.Round(100*time.Millisecond))
	if stats.Errors > 0 || stats.Warnings > 0 {
		_, _ = fmt.Fprintf(r.out, " (%d errors, %d warnings)", stats.Errors, stats.Warnings)
	}
	_, _ = fmt.Fprintln(r.out)

	if stats.ValuesAdded > 0 || stats.Truncated > 0 || stats.MissingEntity > 0 {
		_, _ = fmt.Fprintf(r.out, "  Ancestors added: %d\n", stats.ValuesAdded)
		if stats.Truncated > 0 {
			_, _ = fmt.Fprintf(r.out, "  Truncated walks: %d\n", stats.Truncated)
		}
		if stats.MissingEntity > 0 {
			_, _ = fmt.Fprintf(r.out, "  Missing entities: %d\n", stats.MissingEntity)
		}
	}
}

// Errors returns the errors and warnings seen so far.
func (r *PlainRenderer) Errors() []ErrorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ErrorEvent(nil), r.errors...)
}

// Stop implements Renderer.
func (r *PlainRenderer) Stop() error {
	return nil
}
