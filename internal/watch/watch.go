// Package watch turns filesystem changes under the web root into manifest
// invalidations.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/appcache-hub/appcache-hub/internal/logging"
	"github.com/appcache-hub/appcache-hub/internal/manifest"
	"github.com/appcache-hub/appcache-hub/internal/store"
)

// DefaultDebounce is used when New is given a non-positive debounce.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports settled bursts of changes below a directory tree.
type Watcher struct {
	root     string
	debounce time.Duration
	logger   *logrus.Logger
	onChange func(ctx context.Context)
	fsw      *fsnotify.Watcher
}

// New watches root and all of its subdirectories. The watches are in place
// when New returns; events are only delivered once Run is called.
func New(root string, debounce time.Duration, logger *logrus.Logger, onChange func(ctx context.Context)) (*Watcher, error) {
	if onChange == nil {
		return nil, errors.New("change callback required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = logging.Discard()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{
		root:     filepath.Clean(root),
		debounce: debounce,
		logger:   logger,
		onChange: onChange,
		fsw:      fsw,
	}
	if err := w.addTree(w.root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run delivers debounced change notifications until ctx ends, then releases
// the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending int
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if event.Has(fsnotify.Create) {
				w.maybeAddDir(event.Name)
			}
			pending++
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.WithField("action", "asset_watch").WithError(err).Warn("asset_watch_error")
		case <-fire:
			fire = nil
			w.logger.WithFields(logrus.Fields{
				"action": "asset_watch",
				"events": pending,
			}).Info("asset_change_detected")
			pending = 0
			w.onChange(ctx)
		}
	}
}

// Close releases the watcher without running it.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if filepath.Ext(event.Name) == manifest.Extension || store.IsTempFile(event.Name) {
		return false
	}
	return true
}

func (w *Watcher) maybeAddDir(path string) {
	if err := w.addTree(path); err != nil {
		w.logger.WithField("action", "asset_watch").WithField("path", path).WithError(err).Warn("asset_watch_add_failed")
	}
}

// addTree registers every directory under root. A root that is a plain file
// is ignored.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				if errors.Is(err, fs.ErrNotExist) && root != w.root {
					return nil
				}
				return fmt.Errorf("walk %s: %w", path, err)
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
