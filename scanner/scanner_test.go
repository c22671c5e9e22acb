package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScanner() *Scanner {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), 2)
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(relPath))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func relPaths(snapshot *Snapshot) []string {
	paths := make([]string, len(snapshot.Files))
	for i, f := range snapshot.Files {
		paths[i] = f.RelativePath
	}
	return paths
}

func Test_Scan_IncludesOnlyAnalyzableFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "print(1)\n")
	writeFile(t, root, "notes.txt", "hello\n")
	writeFile(t, root, "src/main.go", "package main\n")
	writeFile(t, root, "node_modules/lib/index.js", "module.exports = 1\n")

	snapshot, err := newTestScanner().Scan(context.Background(), root, model.Filters{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.py", "src/main.go"}, relPaths(snapshot))
	assert.Equal(t, 3, snapshot.TotalSeen)
	assert.Equal(t, 2, snapshot.TotalAnalyzable)

	goFile := snapshot.Files[1]
	assert.Equal(t, "go", goFile.Extension)
	assert.Equal(t, "Go", goFile.Language)
	assert.Equal(t, int64(len("package main\n")), goFile.SizeBytes)
	assert.Equal(t, filepath.Join(snapshot.Root, "src", "main.go"), goFile.AbsolutePath)
}

func Test_Scan_ShallowOnlyImmediateChildren(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "top.py", "x = 1\n")
	writeFile(t, root, "pkg/nested.py", "y = 2\n")

	snapshot, err := newTestScanner().Scan(context.Background(), root, model.Filters{MaxDepth: 1})
	require.NoError(t, err)

	assert.Equal(t, []string{"top.py"}, relPaths(snapshot))
	assert.Equal(t, 1, snapshot.TotalSeen)
}

func Test_Scan_BoundedDepth(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "")
	writeFile(t, root, "one/b.py", "")
	writeFile(t, root, "one/two/c.py", "")

	snapshot, err := newTestScanner().Scan(context.Background(), root, model.Filters{MaxDepth: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "one/b.py"}, relPaths(snapshot))

	snapshot, err = newTestScanner().Scan(context.Background(), root, model.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.py", "one/b.py", "one/two/c.py"}, relPaths(snapshot))
}

func Test_Scan_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "main_test.go", "package main\n")
	writeFile(t, root, "gen/api.go", "package gen\n")

	filters := model.Filters{ExcludePatterns: []string{"*_test.go", "gen/"}}
	snapshot, err := newTestScanner().Scan(context.Background(), root, filters)
	require.NoError(t, err)

	assert.Equal(t, []string{"main.go"}, relPaths(snapshot))
	assert.Equal(t, 2, snapshot.TotalSeen)
	assert.Equal(t, 1, snapshot.TotalAnalyzable)
}

func Test_Scan_Gitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n")
	writeFile(t, root, "app.ts", "export const a = 1\n")
	writeFile(t, root, "generated/client.ts", "export const b = 2\n")

	snapshot, err := newTestScanner().Scan(context.Background(), root, model.Filters{UseGitignore: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.ts"}, relPaths(snapshot))

	snapshot, err = newTestScanner().Scan(context.Background(), root, model.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.ts", "generated/client.ts"}, relPaths(snapshot))
}

func Test_Scan_MaxFileSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.py", "x = 1\n")
	writeFile(t, root, "big.py", strings.Repeat("x = 1\n", 100))

	snapshot, err := newTestScanner().Scan(context.Background(), root, model.Filters{MaxFileSizeBytes: 64})
	require.NoError(t, err)

	assert.Equal(t, []string{"small.py"}, relPaths(snapshot))
	assert.Equal(t, 2, snapshot.TotalSeen)
	assert.Equal(t, 1, snapshot.TotalAnalyzable)
}

func Test_Scan_ContentHash(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "print('a')\n")
	writeFile(t, root, "b.py", "print('a')\n")
	writeFile(t, root, "c.py", "print('c')\n")

	snapshot, err := newTestScanner().Scan(context.Background(), root, model.Filters{})
	require.NoError(t, err)
	require.Len(t, snapshot.Files, 3)

	sum := sha256.Sum256([]byte("print('a')\n"))
	assert.Equal(t, hex.EncodeToString(sum[:]), snapshot.Files[0].ContentHash)
	assert.Len(t, snapshot.Files[0].ContentHash, 64)
	assert.Equal(t, snapshot.Files[0].ContentHash, snapshot.Files[1].ContentHash)
	assert.NotEqual(t, snapshot.Files[0].ContentHash, snapshot.Files[2].ContentHash)
}

func Test_Scan_SortedByRelativePath(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a/x.py", "")
	writeFile(t, root, "a.py", "")
	writeFile(t, root, "B.py", "")

	snapshot, err := newTestScanner().Scan(context.Background(), root, model.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B.py", "a.py", "a/x.py"}, relPaths(snapshot))
}

func Test_Scan_DoesNotFollowSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFile(t, outside, "external.py", "x = 1\n")
	writeFile(t, root, "local.py", "y = 2\n")

	if err := os.Symlink(filepath.Join(outside, "external.py"), filepath.Join(root, "link.py")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "linkdir")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	snapshot, err := newTestScanner().Scan(context.Background(), root, model.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"local.py"}, relPaths(snapshot))
}

func Test_Scan_SymlinkedRootIsResolved(t *testing.T) {
	target := t.TempDir()
	writeFile(t, target, "src/main.go", "package main\n")
	link := filepath.Join(t.TempDir(), "project")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}
	resolvedTarget, err := filepath.EvalSymlinks(target)
	require.NoError(t, err)

	snapshot, err := newTestScanner().Scan(context.Background(), link, model.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/main.go"}, relPaths(snapshot))
	assert.Equal(t, resolvedTarget, snapshot.Root)
}

func skipWithoutPermissionChecks(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("permission bits are not enforced on windows")
	}
	if os.Geteuid() == 0 {
		t.Skip("root ignores permission bits")
	}
}

func Test_Scan_UnreadableFileIsExcluded(t *testing.T) {
	skipWithoutPermissionChecks(t)
	root := t.TempDir()
	writeFile(t, root, "ok.py", "x = 1\n")
	writeFile(t, root, "secret.py", "y = 2\n")
	secret := filepath.Join(root, "secret.py")
	require.NoError(t, os.Chmod(secret, 0))
	t.Cleanup(func() { os.Chmod(secret, 0644) })

	snapshot, err := newTestScanner().Scan(context.Background(), root, model.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.py"}, relPaths(snapshot))
}

func Test_Scan_UnreadableDirectoryIsSkipped(t *testing.T) {
	skipWithoutPermissionChecks(t)
	root := t.TempDir()
	writeFile(t, root, "ok.py", "x = 1\n")
	writeFile(t, root, "locked/inner.py", "y = 2\n")
	writeFile(t, root, "open/visible.py", "z = 3\n")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	snapshot, err := newTestScanner().Scan(context.Background(), root, model.Filters{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ok.py", "open/visible.py"}, relPaths(snapshot))
}

func Test_Scan_RootNotDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "file.py", "")

	_, err := newTestScanner().Scan(context.Background(), filepath.Join(root, "file.py"), model.Filters{})
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func Test_Scan_RootMissing(t *testing.T) {
	_, err := newTestScanner().Scan(context.Background(), filepath.Join(t.TempDir(), "missing"), model.Filters{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_Scan_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.py", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestScanner().Scan(ctx, root, model.Filters{})
	assert.ErrorIs(t, err, context.Canceled)
}

func Test_Scan_EmptyDirectory(t *testing.T) {
	snapshot, err := newTestScanner().Scan(context.Background(), t.TempDir(), model.Filters{})
	require.NoError(t, err)
	assert.Empty(t, snapshot.Files)
	assert.Zero(t, snapshot.TotalSeen)
}
