// Package watch reloads a menu document when its file changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mchmarny/navmenu/pkg/menu"
)

// DefaultDebounce collapses bursts of writes from editors into one reload.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads one document file.
type Watcher struct {
	path     string
	debounce time.Duration
	onLoad   func(*menu.Document)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period after the last change before reloading.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// New returns a watcher that calls onLoad with every successfully parsed
// version of the document at path. Invalid versions are logged and skipped.
func New(path string, onLoad func(*menu.Document), opts ...Option) *Watcher {
	w := &Watcher{
		path:     filepath.Clean(path),
		debounce: DefaultDebounce,
		onLoad:   onLoad,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the document until ctx is canceled. The parent directory is
// watched so that editors replacing the file by rename are seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch menu directory: %w", err)
	}

	slog.Info("watching menu document", "path", w.path)

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			slog.Error("menu watcher error", "error", err)

		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	doc, err := menu.Load(w.path)
	if err != nil {
		slog.Error("menu reload failed", "path", w.path, "error", err)
		return
	}

	slog.Info("menu document reloaded",
		"path", w.path,
		"menus", len(doc.Menus),
	)
	w.onLoad(doc)
}
