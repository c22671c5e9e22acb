package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aMonteSl/codexr-mcp/changes"
	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/aMonteSl/codexr-mcp/scanner"
	"github.com/aMonteSl/codexr-mcp/watcher"
)

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"main.go":     "package main\n\nfunc main() {\n\tif true {\n\t\tprintln(1)\n\t}\n}\n",
		"src/util.py": "def add(a, b):\n    return a + b\n",
		"README.md":   "# readme\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd := NewRootCommand()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--log-level", "error"}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func Test_Analyze_JSON(t *testing.T) {
	root := writeProject(t)
	stateDir := t.TempDir()

	out, err := runCommand(t, "analyze", root, "--format", "json", "--state-dir", stateDir)
	require.NoError(t, err)

	var result model.DirectoryAnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, root, result.DirectoryPath)
	assert.Equal(t, 2, result.Summary.TotalFiles)
	assert.False(t, result.Metadata.IsIncremental)
	_, ok := result.File("src/util.py")
	assert.True(t, ok)
}

func Test_Analyze_SecondRunReportsNoChanges(t *testing.T) {
	root := writeProject(t)
	stateDir := t.TempDir()

	_, err := runCommand(t, "analyze", root, "--state-dir", stateDir)
	require.NoError(t, err)

	out, err := runCommand(t, "analyze", root, "--state-dir", stateDir)
	require.NoError(t, err)
	assert.Contains(t, out, "No changes since the last analysis.")

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "extra.py"), []byte("def f():\n    pass\n"), 0644))
	out, err = runCommand(t, "analyze", root, "--state-dir", stateDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Changes: +1 ~0 -0 =2")
}

func Test_Analyze_FullIgnoresPersistedResult(t *testing.T) {
	root := writeProject(t)
	stateDir := t.TempDir()

	_, err := runCommand(t, "analyze", root, "--state-dir", stateDir)
	require.NoError(t, err)

	out, err := runCommand(t, "analyze", root, "--state-dir", stateDir, "--full")
	require.NoError(t, err)
	assert.NotContains(t, out, "No changes")
	assert.Contains(t, out, "Most complex files:")
}

func Test_Analyze_YAML(t *testing.T) {
	root := writeProject(t)

	out, err := runCommand(t, "analyze", root, "--format", "yaml", "--persist=false")
	require.NoError(t, err)
	assert.Contains(t, out, "directoryPath: "+root)
	assert.Contains(t, out, "totalFiles: 2")
	assert.Contains(t, out, "relativePath: main.go")
}

func Test_Analyze_ShallowMode(t *testing.T) {
	root := writeProject(t)

	out, err := runCommand(t, "analyze", root, "--format", "json", "--persist=false", "--mode", "shallow")
	require.NoError(t, err)

	var result model.DirectoryAnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, []string{"main.go"}, changes.Paths(result.Records()))
}

func Test_Analyze_UnknownFormat(t *testing.T) {
	_, err := runCommand(t, "analyze", t.TempDir(), "--format", "xml", "--persist=false")
	assert.ErrorContains(t, err, "unknown format")
}

func Test_Analyze_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.go")
	require.NoError(t, os.WriteFile(file, []byte("package x\n"), 0644))

	_, err := runCommand(t, "analyze", file, "--persist=false")
	assert.ErrorIs(t, err, scanner.ErrNotDirectory)
}

func Test_Register_Project(t *testing.T) {
	dir := t.TempDir()

	out, err := runCommand(t, "register", "project", dir, "--binary", "/usr/local/bin/codexr-mcp", "--", "--mode", "shallow")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(dir, ".mcp.json"))

	data, err := os.ReadFile(filepath.Join(dir, ".mcp.json"))
	require.NoError(t, err)
	var config struct {
		MCPServers map[string]struct {
			Command string   `json:"command"`
			Args    []string `json:"args"`
		} `json:"mcpServers"`
	}
	require.NoError(t, json.Unmarshal(data, &config))
	entry, ok := config.MCPServers["codexr"]
	require.True(t, ok, "expected entry named codexr")
	assert.Contains(t, entry.Args, "serve")
	assert.Contains(t, entry.Args, "shallow")
}

func Test_Register_UserTakesNoDirectory(t *testing.T) {
	_, err := runCommand(t, "register", "user", t.TempDir(), "--binary", "/bin/codexr")
	assert.Error(t, err)
}

func Test_ResolveRoots(t *testing.T) {
	dir := t.TempDir()

	roots, err := resolveRoots([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, roots)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	cwd, err = filepath.EvalSymlinks(cwd)
	require.NoError(t, err)
	roots, err = resolveRoots(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{cwd}, roots)

	_, err = resolveRoots([]string{filepath.Join(dir, "missing")})
	assert.True(t, errors.Is(err, os.ErrNotExist))
	link := filepath.Join(t.TempDir(), "link")
	if err := os.Symlink(dir, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	resolved, err := filepath.EvalSymlinks(dir)
	require.NoError(t, err)
	roots, err = resolveRoots([]string{link})
	require.NoError(t, err)
	assert.Equal(t, []string{resolved}, roots)
}

func Test_SetupLogger_Levels(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "codexr.log")
	logger, closeLog := setupLogger("warn", logFile)

	logger.Info("hidden message")
	logger.Warn("visible message")
	closeLog()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden message")
	assert.Contains(t, string(data), "visible message")
}

func Test_FormatCycleLine(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	result := &model.DirectoryAnalysisResult{
		Summary: model.Summary{TotalFiles: 3, AverageComplexity: 2.5, MaxComplexity: 7},
	}

	tests := []struct {
		name  string
		event watcher.CycleEvent
		want  string
	}{
		{
			name:  "failure",
			event: watcher.CycleEvent{Root: "/p", Err: errors.New("boom"), Duration: 5 * time.Millisecond},
			want:  "[10:30:00] /p: analysis failed after 5ms: boom",
		},
		{
			name:  "no changes",
			event: watcher.CycleEvent{Root: "/p", Result: result, Duration: time.Millisecond},
			want:  "[10:30:00] /p: no changes (1ms)",
		},
		{
			name:  "full",
			event: watcher.CycleEvent{Root: "/p", Result: result, HasChanges: true, Duration: 2 * time.Millisecond},
			want:  "[10:30:00] /p: full analysis, 3 files, avg complexity 2.50, max 7 (2ms)",
		},
		{
			name: "incremental",
			event: watcher.CycleEvent{
				Root: "/p", Result: result, HasChanges: true, Incremental: true, Duration: 2 * time.Millisecond,
				Changes: &changes.ChangeSet{Added: []model.FileRecord{{RelativePath: "a.go"}}},
			},
			want: "[10:30:00] /p: incremental analysis +1 ~0 -0 =0, 3 files, avg complexity 2.50, max 7 (2ms)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatCycleLine(tt.event, now))
		})
	}
}

func Test_FormatTopFiles(t *testing.T) {
	result := &model.DirectoryAnalysisResult{Files: []model.FileMetrics{
		{FileRecord: model.FileRecord{RelativePath: "a.go"}, CodeMetrics: model.CodeMetrics{AverageComplexity: 1}},
		{FileRecord: model.FileRecord{RelativePath: "b.go"}, CodeMetrics: model.CodeMetrics{AverageComplexity: 9}},
		{FileRecord: model.FileRecord{RelativePath: "c.go"}, CodeMetrics: model.CodeMetrics{AverageComplexity: 4}},
	}}

	out := formatTopFiles(result, 2)
	assert.Contains(t, out, "b.go")
	assert.Contains(t, out, "c.go")
	assert.NotContains(t, out, "a.go")
	assert.Equal(t, "a.go", result.Files[0].RelativePath, "input order must be kept")
	assert.Empty(t, formatTopFiles(&model.DirectoryAnalysisResult{}, 5))
}
