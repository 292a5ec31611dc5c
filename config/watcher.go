package config

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/lanathlor/Forge-sub000/logging"
)

// Watcher watches a forge config file for changes and reloads it.
// Rapid successive writes (editor save dances) are debounced.
type Watcher struct {
	watcher    *fsnotify.Watcher
	path       string
	debounce   time.Duration
	onReload   func(*Config)
	logger     *logrus.Entry
	mu         sync.Mutex
	lastChange time.Time
}

// NewWatcher creates a Watcher for the config file at path. The onReload
// callback receives each successfully reloaded configuration; reloads that
// fail validation are logged and dropped.
func NewWatcher(path string, debounce time.Duration, onReload func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch the containing directory: editors replace files via rename,
	// which drops a direct file watch.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	return &Watcher{
		watcher:  fsw,
		path:     path,
		debounce: debounce,
		onReload: onReload,
		logger:   logging.NewLogger("config-watcher"),
	}, nil
}

// Run processes filesystem events until the context is canceled.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.mu.Lock()
			if time.Since(w.lastChange) < w.debounce {
				w.mu.Unlock()
				continue
			}
			w.mu.Unlock()

			// Let the write settle before re-reading. Stamping the
			// change after the settle window absorbs the rest of an
			// editor's save burst, whose events are queued behind this
			// one.
			time.Sleep(w.debounce)
			w.mu.Lock()
			w.lastChange = time.Now()
			w.mu.Unlock()
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.WithError(err).Warn("Config watch error")
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	name := filepath.Base(event.Name)
	return name == filepath.Base(w.path) || strings.HasPrefix(name, ".forge")
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.WithError(err).Warn("Ignoring config reload")
		return
	}
	w.logger.WithField("file", w.path).Info("Config reloaded")
	if w.onReload != nil {
		w.onReload(cfg)
	}
}
