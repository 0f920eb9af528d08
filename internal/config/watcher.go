package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher keeps the latest successfully loaded value of a file and reloads it
// when the file changes. A failed reload keeps the previous value.
type Watcher[T any] struct {
	path     string
	load     func(path string) (T, error)
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.RWMutex
	current  T
	onChange []func(T)
	onError  []func(error)
}

// NewWatcher performs the initial load and fails if it does not succeed.
func NewWatcher[T any](path string, load func(string) (T, error), logger *slog.Logger) (*Watcher[T], error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	w := &Watcher[T]{path: path, load: load, logger: logger, debounce: 100 * time.Millisecond}
	v, err := load(path)
	if err != nil {
		return nil, err
	}
	w.current = v
	return w, nil
}

// Current returns the latest loaded value.
func (w *Watcher[T]) Current() T {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after every successful reload.
func (w *Watcher[T]) OnChange(fn func(T)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// OnError registers a callback invoked when a reload fails.
func (w *Watcher[T]) OnError(fn func(error)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onError = append(w.onError, fn)
}

// Reload forces an immediate re-read of the file.
func (w *Watcher[T]) Reload() (T, error) {
	v, err := w.load(w.path)
	if err != nil {
		w.mu.RLock()
		callbacks := make([]func(error), len(w.onError))
		copy(callbacks, w.onError)
		w.mu.RUnlock()
		for _, fn := range callbacks {
			fn(err)
		}
		var zero T
		return zero, err
	}

	w.mu.Lock()
	w.current = v
	callbacks := make([]func(T), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(v)
	}
	return v, nil
}

// Watch blocks until ctx is done, reloading the file whenever it is written,
// created or renamed into place. The parent directory is watched so editors
// that replace the file on save are followed.
func (w *Watcher[T]) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("file watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("file watcher add %s: %w", dir, err)
	}

	target := filepath.Clean(w.path)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			// editors emit several events per save; reload once they settle
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if _, err := w.Reload(); err != nil {
				w.logger.Warn("reload failed, keeping previous version", "path", w.path, "err", err)
				continue
			}
			w.logger.Info("reloaded", "path", w.path)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "path", w.path, "err", err)
		}
	}
}
