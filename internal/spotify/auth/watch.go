package auth

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SessionWatcher reloads a Guardian when the session file changes on
// disk, e.g. after `muffle auth login` runs in another terminal.
type SessionWatcher struct {
	guardian *Guardian
	name     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	done     chan struct{}
	stopped  chan struct{}
}

// WatchSession starts watching the guardian's session file.
func WatchSession(g *Guardian, logger *zap.Logger) (*SessionWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	// Watch the directory: the file itself may not exist yet and may be
	// replaced rather than written in place.
	path := g.storage.Path()
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch session directory: %w", err)
	}

	w := &SessionWatcher{
		guardian: g,
		name:     filepath.Base(path),
		watcher:  fsw,
		logger:   logger,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *SessionWatcher) loop() {
	defer close(w.stopped)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.guardian.Reload(); err != nil {
				w.logger.Debug("session reload failed", zap.Error(err))
				continue
			}
			w.logger.Debug("session reloaded", zap.String("op", event.Op.String()))
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug("session watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *SessionWatcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	<-w.stopped
	return err
}
