package schedule

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/okian/timeattack/internal/domain/model"
	"github.com/okian/timeattack/pkg/logger"
)

// Loader reads the schedule file and hot-reloads it on change. A failed
// reload keeps the last good schedule.
type Loader struct {
	path     string
	mu       sync.RWMutex
	current  *Schedule
	onChange []func(*Schedule)
	logger   logger.Logger
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(ctx context.Context, path string) (*Loader, error) {
	l := &Loader{path: path, logger: logger.Get().Named("schedule-loader")}
	s, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = s
	l.logger.Info(ctx, "schedule loaded", logger.String("path", path), logger.Int("season", s.Season), logger.Int("events", len(s.keys)))
	return l, nil
}

// Path returns the watched file.
func (l *Loader) Path() string { return l.path }

// Schedule returns the latest good schedule.
func (l *Loader) Schedule() *Schedule {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked after every successful reload.
func (l *Loader) OnChange(fn func(*Schedule)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Reload forces an immediate re-read of the schedule file.
func (l *Loader) Reload(ctx context.Context) (*Schedule, error) {
	s, err := l.load()
	if err != nil {
		l.logger.Warn(ctx, "schedule reload failed; keeping previous", logger.Error(err))
		return nil, err
	}
	l.mu.Lock()
	l.current = s
	callbacks := make([]func(*Schedule), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(s)
	}
	return s, nil
}

// Watch reloads the schedule whenever the file is written, created or
// renamed into place. Call the returned stop function to clean up.
func (l *Loader) Watch(ctx context.Context) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("schedule watcher: %w", err)
	}
	// Watch the directory so atomic renames are seen.
	dir := filepath.Dir(l.path)
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("schedule watcher add %s: %w", dir, err)
	}
	target := filepath.Clean(l.path)

	done := make(chan struct{})
	var once sync.Once
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					_, _ = l.Reload(ctx)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn(ctx, "schedule watcher error", logger.Error(err))
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() { once.Do(func() { close(done) }) }, nil
}

func (l *Loader) load() (*Schedule, error) {
	const op = "schedule.load"
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, model.NewError(op, model.ErrConfig, fmt.Errorf("read schedule %s: %w", l.path, err))
	}
	return Parse(data)
}
