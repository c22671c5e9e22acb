package watcher

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/fsnotify/fsnotify"
)

type prefixIgnore struct {
	ignoredDirs []string
}

func (p prefixIgnore) ShouldIgnoreDir(absolutePath string) bool {
	for _, dir := range p.ignoredDirs {
		if filepath.Base(absolutePath) == dir {
			return true
		}
	}
	return false
}

func (p prefixIgnore) ShouldIgnore(absolutePath string) bool {
	for _, dir := range p.ignoredDirs {
		if strings.Contains(filepath.ToSlash(absolutePath), "/"+dir+"/") {
			return true
		}
	}
	return false
}

func Test_Watcher_HandleEventFiltering(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name    string
		event   fsnotify.Event
		forward bool
	}{
		{"write analyzable", fsnotify.Event{Name: filepath.Join(root, "main.go"), Op: fsnotify.Write}, true},
		{"write non-analyzable", fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Write}, false},
		{"remove dotted directory", fsnotify.Event{Name: filepath.Join(root, "pkg.v2"), Op: fsnotify.Remove}, true},
		{"rename dotted directory", fsnotify.Event{Name: filepath.Join(root, "pkg.v2"), Op: fsnotify.Rename}, true},
		{"remove non-analyzable file", fsnotify.Event{Name: filepath.Join(root, "notes.txt"), Op: fsnotify.Remove}, true},
		{"remove ignored directory", fsnotify.Event{Name: filepath.Join(root, "node_modules"), Op: fsnotify.Remove}, false},
		{"remove inside ignored directory", fsnotify.Event{Name: filepath.Join(root, "node_modules", "x.js"), Op: fsnotify.Remove}, false},
		{"chmod only", fsnotify.Event{Name: filepath.Join(root, "main.go"), Op: fsnotify.Chmod}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var forwarded []string
			w := &Watcher{
				ignoreChecker: prefixIgnore{ignoredDirs: []string{"node_modules"}},
				rootDir:       root,
				onEvent:       func(path string, _ EventOp) { forwarded = append(forwarded, path) },
				logger:        testLogger(),
			}
			w.handleEvent(tt.event)
			if got := len(forwarded) == 1; got != tt.forward {
				t.Errorf("forwarded = %v, want forward %v", forwarded, tt.forward)
			}
		})
	}
}
