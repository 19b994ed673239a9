package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher reports debounced changes to a fixed set of files.
type FileWatcher struct {
	paths     map[string]struct{}
	order     []string
	opts      Options
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	events    chan []FileEvent
	errors    chan error
	stopCh    chan struct{}
	mu        sync.RWMutex
	started   bool
	stopped   bool
	dropped   atomic.Uint64
	polling   atomic.Bool
}

// NewFileWatcher prepares a watcher for paths. Relative paths are made
// absolute. Watching starts with Start.
func NewFileWatcher(paths []string, opts Options) (*FileWatcher, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files to watch")
	}
	opts = opts.WithDefaults()

	w := &FileWatcher{
		paths:     make(map[string]struct{}, len(paths)),
		opts:      opts,
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []FileEvent, opts.EventBufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve absolute path: %w", err)
		}
		if _, dup := w.paths[abs]; dup {
			continue
		}
		w.paths[abs] = struct{}{}
		w.order = append(w.order, abs)
	}

	if !opts.ForcePolling {
		if fsw, err := fsnotify.NewWatcher(); err == nil {
			w.fsWatcher = fsw
		} else {
			slog.Warn("watcher_fsnotify_unavailable", slog.String("error", err.Error()))
		}
	}
	if w.fsWatcher == nil {
		w.polling.Store(true)
	}
	return w, nil
}

// Start watches until ctx is cancelled or Stop is called. It blocks.
func (w *FileWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return fmt.Errorf("watcher stopped")
	}
	if w.started {
		w.mu.Unlock()
		return fmt.Errorf("watcher already started")
	}
	w.started = true
	w.mu.Unlock()

	go w.forward(ctx)

	if w.fsWatcher != nil {
		err := w.addDirs()
		if err == nil {
			return w.runFsnotify(ctx)
		}
		slog.Warn("watcher_fallback_polling", slog.String("error", err.Error()))
		w.polling.Store(true)
	}

	poll(ctx, w.stopCh, w.order, w.opts.PollInterval, w.debouncer.Add)
	if err := ctx.Err(); err != nil {
		_ = w.Stop()
		return err
	}
	return nil
}

func (w *FileWatcher) addDirs() error {
	seen := make(map[string]struct{})
	for _, p := range w.order {
		dir := filepath.Dir(p)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create watched directory: %w", err)
		}
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	return nil
}

func (w *FileWatcher) runFsnotify(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.emitError(err)
		}
	}
}

func (w *FileWatcher) handle(event fsnotify.Event) {
	path := filepath.Clean(event.Name)
	if _, ok := w.paths[path]; !ok {
		return
	}

	var op Operation
	switch {
	case event.Op&fsnotify.Create != 0:
		op = OpCreate
	case event.Op&fsnotify.Write != 0:
		op = OpModify
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		op = OpDelete
	default:
		return
	}

	w.debouncer.Add(FileEvent{Path: path, Operation: op, Timestamp: time.Now()})
}

func (w *FileWatcher) forward(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case events, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			w.emitEvents(events)
		}
	}
}

func (w *FileWatcher) emitEvents(events []FileEvent) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}

	select {
	case w.events <- events:
	default:
		count := w.dropped.Add(1)
		slog.Warn("watcher_buffer_full",
			slog.Int("batch_size", len(events)),
			slog.Uint64("total_dropped_batches", count))
	}
}

func (w *FileWatcher) emitError(err error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.stopped {
		return
	}
	select {
	case w.errors <- err:
	default:
	}
}

// Stop releases resources and closes the event and error channels. Safe to
// call multiple times.
func (w *FileWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.stopCh)
	w.debouncer.Stop()
	if w.fsWatcher != nil {
		_ = w.fsWatcher.Close()
	}
	close(w.events)
	close(w.errors)
	return nil
}

// Events returns debounced batches of changes.
func (w *FileWatcher) Events() <-chan []FileEvent {
	return w.events
}

// Errors returns non-fatal watcher errors.
func (w *FileWatcher) Errors() <-chan error {
	return w.errors
}

// Paths returns the watched files.
func (w *FileWatcher) Paths() []string {
	return append([]string(nil), w.order...)
}

// Mode reports "fsnotify" or "polling".
func (w *FileWatcher) Mode() string {
	if w.polling.Load() {
		return "polling"
	}
	return "fsnotify"
}

// DroppedBatches returns how many batches were dropped on a full buffer.
func (w *FileWatcher) DroppedBatches() uint64 {
	return w.dropped.Load()
}
