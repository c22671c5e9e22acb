package tools

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aMonteSl/codexr-mcp/analyzer"
	"github.com/aMonteSl/codexr-mcp/engine"
	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/aMonteSl/codexr-mcp/scanner"
	"github.com/aMonteSl/codexr-mcp/watcher"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(t *testing.T) *watcher.Registry {
	t.Helper()
	logger := testLogger()
	eng := engine.New(scanner.New(logger, 2), analyzer.NewBuiltin(), logger, engine.Options{Concurrency: 2})
	r := watcher.NewRegistry(eng, watcher.RegistryOptions{Debounce: 20 * time.Millisecond, Enabled: true}, logger)
	t.Cleanup(func() { r.Close() })
	return r
}

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// newAnalyzedRoot creates a project directory, watches it and waits for the
// first cycle and its subscribers to complete.
func newAnalyzedRoot(t *testing.T, r *watcher.Registry, files map[string]string) *watcher.Scheduler {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		writeTestFile(t, filepath.Join(root, name), content)
	}
	s, err := r.Watch(root, model.Filters{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	s.Trigger()
	deadline := time.Now().Add(5 * time.Second)
	for s.LastResult() == nil || s.Status().State != watcher.StateIdle {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for the first analysis")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return s
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if result == nil || len(result.Content) == 0 {
		t.Fatal("expected a result with content")
	}
	return result.Content[0].(*mcp.TextContent).Text
}

var sampleProject = map[string]string{
	"main.go": `package main

func main() {
	for i := 0; i < 3; i++ {
		if i > 1 {
			println(i)
		}
	}
}
`,
	"src/util.py": `def add(a, b):
    return a + b
`,
	"README.md": "# not analyzed\n",
}
