package watcher

import (
	"context"
	"os"
	"time"
)

type fileSnapshot struct {
	exists  bool
	modTime time.Time
	size    int64
}

func snapshot(path string) fileSnapshot {
	info, err := os.Stat(path)
	if err != nil {
		return fileSnapshot{}
	}
	return fileSnapshot{exists: true, modTime: info.ModTime(), size: info.Size()}
}

// diff returns the operation that turns prev into cur, or false if nothing
// changed.
func diff(prev, cur fileSnapshot) (Operation, bool) {
	switch {
	case !prev.exists && cur.exists:
		return OpCreate, true
	case prev.exists && !cur.exists:
		return OpDelete, true
	case cur.exists && (prev.modTime != cur.modTime || prev.size != cur.size):
		return OpModify, true
	default:
		return 0, false
	}
}

// poll stats every watched file each interval and reports differences to
// emit until ctx is done or stop is closed.
func poll(ctx context.Context, stop <-chan struct{}, paths []string, interval time.Duration, emit func(FileEvent)) {
	state := make(map[string]fileSnapshot, len(paths))
	for _, p := range paths {
		state[p] = snapshot(p)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			for _, p := range paths {
				cur := snapshot(p)
				if op, changed := diff(state[p], cur); changed {
					emit(FileEvent{Path: p, Operation: op, Timestamp: time.Now()})
				}
				state[p] = cur
			}
		}
	}
}
