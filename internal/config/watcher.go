package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Handler receives the freshly loaded config after the watched file
// changes, or the load error if it no longer parses.
type Handler func(cfg Config, err error)

// Watcher reloads one config file whenever it changes on disk. Rapid
// successive writes are debounced so editors that write in several steps
// trigger a single reload.
type Watcher struct {
	path     string
	loader   *Loader
	handler  Handler
	debounce time.Duration

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending *time.Timer
	closed  bool
}

// Watch starts watching path and calls handler on every reload.
func Watch(path string, loader *Loader, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the directory: editors often replace the file, which drops
	// a watch placed on the file itself.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		path:     path,
		loader:   loader,
		handler:  handler,
		debounce: 100 * time.Millisecond,
		watcher:  fsw,
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounce, func() {
		w.handler(w.loader.Load(w.path))
	})
}

// Close stops watching. Pending reloads are cancelled.
func (w *Watcher) Close() error {
	w.mu.Lock()
	w.closed = true
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}
