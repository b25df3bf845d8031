package retrieval

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// staleMarker is implemented by both indexes
type staleMarker interface {
	MarkStale()
}

// Watcher flags the indexes stale when any indexed file's directory
// changes. Rebuilds stay explicit; the flag is surfaced by the index
// endpoints.
type Watcher struct {
	watcher *fsnotify.Watcher
	targets []staleMarker

	mu      sync.Mutex
	watched map[string]bool
	done    chan struct{}
}

// NewWatcher creates a watcher that marks the given indexes stale
func NewWatcher(targets ...staleMarker) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher: fsw,
		targets: targets,
		watched: make(map[string]bool),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// WatchPaths registers the parent directories of the given files
func (w *Watcher) WatchPaths(paths []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range paths {
		dir := filepath.Dir(p)
		if w.watched[dir] {
			continue
		}
		if err := w.watcher.Add(dir); err == nil {
			w.watched[dir] = true
		}
	}
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				for _, t := range w.targets {
					t.MarkStale()
				}
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
