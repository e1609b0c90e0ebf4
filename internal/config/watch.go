package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads a configuration file whenever it changes.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// NewWatcher starts watching path. Changes are delivered by Run, which also
// releases the watch; a Watcher that is never run must be closed.
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	path = filepath.Clean(path)
	// Editors often save by rename, which drops a watch on the file itself.
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	return &Watcher{path: path, watcher: w, logger: logger}, nil
}

// Run passes every valid reload to onChange until ctx is canceled.
// Invalid edits are logged and skipped. The watch is closed on return.
func (w *Watcher) Run(ctx context.Context, onChange func(*Config)) error {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			next, err := Load(w.path)
			if err != nil {
				w.logger.Warn("ignoring config change", zap.String("file", w.path), zap.Error(err))
				continue
			}
			w.logger.Info("config reloaded", zap.String("file", w.path))
			onChange(next)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("config watch error", zap.String("file", w.path), zap.Error(err))
		}
	}
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
