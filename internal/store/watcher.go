package store

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the settings snapshot when another process rewrites it,
// so admin changes land before the next sweep instead of on it. The sweep
// still reloads settings at its start, so the watcher is an optimization,
// not a correctness requirement.
type Watcher struct {
	fsw    *fsnotify.Watcher
	logger *zap.Logger
	done   chan struct{}
}

// WatchSettings watches the settings file and calls Reload on changes.
// The parent directory is watched rather than the file itself because
// atomic saves replace the file by rename.
func WatchSettings(path string, settings *SettingsStore, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	w := &Watcher{fsw: fsw, logger: logger, done: make(chan struct{})}
	base := filepath.Base(path)

	go func() {
		defer close(w.done)
		for {
			select {
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) != base {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				if err := settings.Reload(); err != nil {
					logger.Warn("settings reload after file change failed", zap.Error(err))
					continue
				}
				logger.Debug("settings reloaded after file change")
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Warn("settings watcher error", zap.Error(err))
			}
		}
	}()

	return w, nil
}

// Close stops watching and waits for the event loop to exit.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}
