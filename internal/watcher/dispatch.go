package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
)

// Handler reacts to a change of one watched file.
type Handler func(ctx context.Context, event FileEvent) error

// Dispatcher routes watcher events to per-file handlers.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{handlers: make(map[string]Handler), logger: logger}
}

// Handle registers h for path, replacing any earlier handler.
func (d *Dispatcher) Handle(path string, h Handler) {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[path] = h
}

// Paths returns the registered paths.
func (d *Dispatcher) Paths() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	paths := make([]string, 0, len(d.handlers))
	for p := range d.handlers {
		paths = append(paths, p)
	}
	return paths
}

// Dispatch runs the handler of every event in the batch. Handler errors are
// logged and do not stop later handlers.
func (d *Dispatcher) Dispatch(ctx context.Context, events []FileEvent) {
	for _, ev := range events {
		d.mu.RLock()
		h, ok := d.handlers[ev.Path]
		d.mu.RUnlock()
		if !ok {
			continue
		}

		d.logger.Info("watched_file_changed",
			slog.String("path", ev.Path),
			slog.String("op", ev.Operation.String()))
		if err := h(ctx, ev); err != nil {
			d.logger.Warn("watched_file_reload_failed",
				slog.String("path", ev.Path),
				slog.String("error", err.Error()))
		}
	}
}

// Run consumes w until its channels close or ctx is done.
func (d *Dispatcher) Run(ctx context.Context, w *FileWatcher) {
	events := w.Events()
	errs := w.Errors()
	for events != nil || errs != nil {
		select {
		case <-ctx.Done():
			return
		case batch, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			d.Dispatch(ctx, batch)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			d.logger.Warn("watcher_error", slog.String("error", err.Error()))
		}
	}
}
