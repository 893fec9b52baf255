package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ManifestReloader watches a manifest file and calls back after it changes.
// Editors often write a file in several steps, so events are debounced.
type ManifestReloader struct {
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	mu       sync.Mutex
	onChange func()
	timer    *time.Timer
}

// NewManifestReloader creates a reloader for the manifest at path.
func NewManifestReloader(path string, debounce time.Duration, logger *slog.Logger) (*ManifestReloader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ManifestReloader{path: abs, debounce: debounce, watcher: w, logger: logger}, nil
}

// OnChange sets the callback to invoke when the manifest changes. The callback
// is called from a background goroutine.
func (r *ManifestReloader) OnChange(callback func()) {
	r.mu.Lock()
	r.onChange = callback
	r.mu.Unlock()
}

// Start watches until ctx is cancelled. The directory is watched rather than
// the file so that atomic replace-by-rename is seen.
func (r *ManifestReloader) Start(ctx context.Context) error {
	if err := r.watcher.Add(filepath.Dir(r.path)); err != nil {
		return err
	}
	r.logger.Debug("watching manifest", "path", r.path)

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			r.handleEvent(event)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("manifest watcher error", "error", err)

		case <-ctx.Done():
			r.stopTimer()
			return nil
		}
	}
}

func (r *ManifestReloader) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != r.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
	r.timer = time.AfterFunc(r.debounce, r.fire)
}

func (r *ManifestReloader) fire() {
	r.mu.Lock()
	cb := r.onChange
	r.mu.Unlock()
	if cb != nil {
		r.logger.Info("manifest changed", "path", r.path)
		cb()
	}
}

func (r *ManifestReloader) stopTimer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.timer != nil {
		r.timer.Stop()
	}
}

// Path returns the watched manifest path.
func (r *ManifestReloader) Path() string {
	return r.path
}

// Stop releases the watcher. Safe to call multiple times.
func (r *ManifestReloader) Stop() error {
	r.stopTimer()
	return r.watcher.Close()
}
