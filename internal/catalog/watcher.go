package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// reloadDebounce coalesces the burst of events editors emit on save.
const reloadDebounce = 100 * time.Millisecond

// ReloadFunc is told about every reload attempt. err is non-nil when the
// file could not be loaded; the registry keeps its previous contents then.
type ReloadFunc func(f File, err error)

// Watcher reloads a Registry whenever its override file changes on disk.
type Watcher struct {
	registry *Registry
	path     string
	logger   *zap.Logger
	onReload ReloadFunc
}

// NewWatcher creates a watcher for the override file at path.
func NewWatcher(registry *Registry, path string, logger *zap.Logger, onReload ReloadFunc) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{registry: registry, path: path, logger: logger, onReload: onReload}
}

// Run watches the file's directory until ctx is cancelled. The directory is
// watched rather than the file so that atomic replace-on-save is seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("catalog: create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("catalog: watch %s: %w", w.path, err)
	}

	target := filepath.Clean(w.path)
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("catalog watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			w.Reload()
		}
	}
}

// Reload loads the override file and swaps it into the registry.
func (w *Watcher) Reload() {
	f, err := Load(w.path)
	if err != nil {
		w.logger.Error("catalog reload failed", zap.String("path", w.path), zap.Error(err))
	} else {
		w.registry.Replace(f)
		w.logger.Info("catalog reloaded",
			zap.String("path", w.path),
			zap.Int("items", len(f.Items)),
			zap.String("checksum", f.Checksum),
		)
	}
	if w.onReload != nil {
		w.onReload(f, err)
	}
}
