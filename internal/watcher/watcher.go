// Package watcher recovers cache coherence after out-of-band workspace
// edits by watching the filesystem and invalidating affected modules.
package watcher

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

// Invalidator drops cached state for a module (or everything).
type Invalidator interface {
	InvalidateModule(module string)
	InvalidateAll()
}

// EventCallback is called after a debounced invalidation flush.
// module is empty when the whole workspace was invalidated.
type EventCallback func(module string)

const debounceInterval = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the workspace root and invalidates
// cache entries for modules whose files change, until ctx is cancelled.
// Bursts of events (an editor save, a git checkout) are coalesced: each
// dirty module is invalidated once per debounce window.
//
// New directories created at runtime are automatically added to the watch
// list so module and page creation from outside the API is picked up.
func Watch(ctx context.Context, root string, inv Invalidator, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	dirty := make(map[string]struct{})
	var flushTimer *time.Timer
	var flushCh <-chan time.Time

	scheduleFlush := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounceInterval)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounceInterval)
		}
	}

	flush := func() {
		for module := range dirty {
			if module == "" {
				inv.InvalidateAll()
				logger.Debug("watcher: invalidated all")
			} else {
				inv.InvalidateModule(module)
				logger.Debug("watcher: invalidated", slog.String("module", module))
			}
			if cb != nil {
				cb(module)
			}
			delete(dirty, module)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			flush()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
				}
			}

			module, ok := moduleOf(root, absPath)
			if !ok {
				continue
			}
			dirty[module] = struct{}{}
			scheduleFlush()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// moduleOf maps an absolute event path to the module it belongs to.
// Atomic-write temp files are ignored; events on the workspace root
// itself invalidate everything (module = "").
func moduleOf(root, absPath string) (string, bool) {
	base := filepath.Base(absPath)
	if strings.HasPrefix(base, ".trellis-tmp-") {
		return "", false
	}
	rel, err := filepath.Rel(root, absPath)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	module, _, found := strings.Cut(rel, "/")
	if !found {
		// A root-level entry appeared or vanished: the module list itself
		// changed, and the entry may be a module dir.
		return module, true
	}
	return module, true
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
