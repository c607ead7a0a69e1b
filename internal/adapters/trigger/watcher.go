package trigger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/timeattack/pkg/logger"
)

// Watcher fires triggers when watched files or directories change.
type Watcher struct {
	mu      sync.Mutex
	files   map[string][]*Trigger // cleaned file path -> triggers
	dirs    map[string][]*Trigger // cleaned dir path -> triggers for any entry
	parents map[string]struct{}
	logger  logger.Logger
}

// NewWatcher creates an empty watcher.
func NewWatcher() *Watcher {
	return &Watcher{
		files:   make(map[string][]*Trigger),
		dirs:    make(map[string][]*Trigger),
		parents: make(map[string]struct{}),
		logger:  logger.Get().Named("watcher"),
	}
}

// File fires t whenever path is written, created or renamed. The parent
// directory is watched so editors that replace the file are seen too.
func (w *Watcher) File(path string, t *Trigger) *Watcher {
	w.mu.Lock()
	defer w.mu.Unlock()
	clean := filepath.Clean(path)
	w.files[clean] = append(w.files[clean], t)
	w.parents[filepath.Dir(clean)] = struct{}{}
	return w
}

// Dir fires t whenever any entry of dir is written, created or renamed.
func (w *Watcher) Dir(dir string, t *Trigger) *Watcher {
	w.mu.Lock()
	defer w.mu.Unlock()
	clean := filepath.Clean(dir)
	w.dirs[clean] = append(w.dirs[clean], t)
	w.parents[clean] = struct{}{}
	return w
}

// Serve watches until ctx is done. Missing directories are skipped with a
// warning; the loops still run on their tickers.
func (w *Watcher) Serve(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	w.mu.Lock()
	for dir := range w.parents {
		if err := fw.Add(dir); err != nil {
			w.logger.Warn(ctx, "cannot watch directory", logger.String("dir", dir), logger.Error(err))
		}
	}
	w.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			w.dispatch(ctx, filepath.Clean(ev.Name))
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "watch error", logger.Error(err))
		}
	}
}

func (w *Watcher) dispatch(ctx context.Context, name string) {
	w.mu.Lock()
	targets := append([]*Trigger{}, w.files[name]...)
	targets = append(targets, w.dirs[filepath.Dir(name)]...)
	w.mu.Unlock()

	for _, t := range targets {
		if t.Fire() {
			w.logger.Debug(ctx, "change detected", logger.String("path", name), logger.String("trigger", t.Name()))
		}
	}
}

// String names the service for the supervisor.
func (w *Watcher) String() string { return "watcher" }
