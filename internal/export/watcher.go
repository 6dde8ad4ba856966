package export

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// EventCallback is called after a watcher-driven export change.
// kind is one of "exported", "removed".
type EventCallback func(kind string, path string)

const reconcileDelay = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the source root and keeps the
// mirror in step until ctx is cancelled. It calls cb (if non-nil) after
// each mirrored change.
//
// New directories created at runtime are added to the watch list and
// their notes exported. Rename events remove the old mirror entry and
// schedule a reconciliation pass that picks up the new name. Removing or
// renaming anything else (a directory, typically) also schedules one, so
// notes moved out of the tree lose their mirror.
func (e *Exporter) Watch(ctx context.Context, cb EventCallback) error {
	root := e.src.Root()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	e.logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	notify := func(kind, rel string) {
		if cb != nil {
			cb(kind, rel)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			e.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			e.reconcile(ctx, notify)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if hidden(absPath) {
						continue
					}
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						e.logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						e.logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Notes may have landed before the watch was added.
					scheduleReconcile()
					continue
				}
			}

			if !strings.HasSuffix(absPath, ".md") {
				if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					scheduleReconcile()
				}
				continue
			}

			rel, relErr := e.src.Rel(absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				_, written, expErr := e.File(ctx, rel)
				if expErr != nil {
					e.logger.Warn("watcher: export failed", slog.String("path", rel), slog.String("error", expErr.Error()))
					continue
				}
				if written {
					e.logger.Debug("watcher: exported", slog.String("path", rel))
					notify("exported", rel)
				}

			case ev.Op&fsnotify.Remove != 0:
				if rmErr := e.Remove(rel); rmErr != nil {
					e.logger.Warn("watcher: remove failed", slog.String("path", rel), slog.String("error", rmErr.Error()))
					continue
				}
				e.logger.Debug("watcher: removed", slog.String("path", rel))
				notify("removed", rel)

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports only the old name; the new one arrives
				// as a Create if it stays inside a watched directory.
				if rmErr := e.Remove(rel); rmErr != nil {
					e.logger.Warn("watcher: rename remove failed", slog.String("path", rel), slog.String("error", rmErr.Error()))
				} else {
					notify("removed", rel)
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// reconcile runs a full pass and reports what it changed.
func (e *Exporter) reconcile(ctx context.Context, notify func(kind, rel string)) {
	before := make(map[string]string, len(e.rendered))
	for p, cs := range e.rendered {
		before[p] = cs
	}

	if _, err := e.All(ctx); err != nil {
		e.logger.Warn("reconcile: export failed", slog.String("error", err.Error()))
		return
	}

	for p, cs := range e.rendered {
		if before[p] != cs {
			notify("exported", p)
		}
	}
	for p := range before {
		if _, ok := e.rendered[p]; !ok {
			notify("removed", p)
		}
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the
// watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && hidden(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
