// Package watcher turns file system notifications under a root into
// debounced, single-flight analysis cycles.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aMonteSl/codexr-mcp/language"
	"github.com/fsnotify/fsnotify"
)

// IgnoreChecker is used by the watcher to check if a path should be ignored.
type IgnoreChecker interface {
	ShouldIgnoreDir(absolutePath string) bool
	ShouldIgnore(absolutePath string) bool
}

// reloader is implemented by checkers that read .gitignore.
type reloader interface {
	Reload()
}

// Watcher registers fsnotify watches on a root and its non-ignored
// subdirectories, down to the scan depth, and reports relevant events.
type Watcher struct {
	fsWatcher     *fsnotify.Watcher
	ignoreChecker IgnoreChecker
	rootDir       string
	maxDepth      int
	onEvent       func(path string, op EventOp)
	logger        *slog.Logger
}

// NewWatcher creates a watcher on rootDir. maxDepth follows the scan filter:
// 1 watches the root only, 0 watches the whole tree.
func NewWatcher(rootDir string, ignoreChecker IgnoreChecker, maxDepth int, onEvent func(path string, op EventOp), logger *slog.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher:     fsWatcher,
		ignoreChecker: ignoreChecker,
		rootDir:       rootDir,
		maxDepth:      maxDepth,
		onEvent:       onEvent,
		logger:        logger,
	}

	if err := w.addTree(rootDir); err != nil {
		fsWatcher.Close()
		return nil, err
	}
	return w, nil
}

// addTree watches dir and every non-ignored directory below it within depth.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == dir && dir == w.rootDir {
				return err
			}
			return nil // Skip entries that can't be read
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.rootDir {
			if !w.withinDepth(path) || w.ignoreChecker.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
		}
		if watchErr := w.fsWatcher.Add(path); watchErr != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", watchErr)
		}
		return nil
	})
}

// withinDepth reports whether a directory's entries are inside the scan depth.
func (w *Watcher) withinDepth(dir string) bool {
	if w.maxDepth <= 0 {
		return true
	}
	rel, err := filepath.Rel(w.rootDir, dir)
	if err != nil {
		return false
	}
	depth := strings.Count(filepath.ToSlash(rel), "/") + 1
	return depth < w.maxDepth
}

// Start begins listening for file system events. Call this in a goroutine.
// It runs until the watcher is closed.
func (w *Watcher) Start() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "root", w.rootDir, "error", err)
		}
	}
}

// handleEvent filters a single fsnotify event and forwards it.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	var op EventOp
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	if op == OpCreate || op == OpWrite {
		if info, err := os.Lstat(path); err == nil && info.IsDir() {
			if w.withinDepth(path) && !w.ignoreChecker.ShouldIgnoreDir(path) {
				// Files created before the watch was registered are picked up by the rescan.
				if err := w.addTree(path); err != nil {
					w.logger.Warn("failed to watch new directory", "path", path, "error", err)
				}
			}
			if op == OpCreate && !w.ignoreChecker.ShouldIgnoreDir(path) {
				w.onEvent(path, op)
			}
			return
		}
	}

	if filepath.Base(path) == ".gitignore" {
		if r, ok := w.ignoreChecker.(reloader); ok {
			r.Reload()
		}
		w.onEvent(path, op)
		return
	}

	if op == OpRemove || op == OpRename {
		// The path is gone, so it may have been a directory whatever its name.
		if w.ignoreChecker.ShouldIgnore(path) || w.ignoreChecker.ShouldIgnoreDir(path) {
			return
		}
		w.onEvent(path, op)
		return
	}

	if !w.relevant(path) || w.ignoreChecker.ShouldIgnore(path) {
		return
	}
	w.onEvent(path, op)
}

// relevant drops created or written files whose extension can never be
// analyzed. A path without an extension may be a directory that vanished
// before it could be checked and is kept.
func (w *Watcher) relevant(path string) bool {
	if language.IsAnalyzable(path) {
		return true
	}
	return language.Extension(path) == ""
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}
