// Package scanner walks a root directory and produces a snapshot of the
// analyzable files under it, each with a content hash.
package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/aMonteSl/codexr-mcp/ignore"
	"github.com/aMonteSl/codexr-mcp/language"
	"github.com/aMonteSl/codexr-mcp/model"
	"golang.org/x/sync/errgroup"
)

// ErrNotDirectory is returned when the scan root exists but is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// Snapshot is the set of analyzable files seen by one scan.
type Snapshot struct {
	Root            string
	Files           []model.FileRecord // sorted by RelativePath
	TotalSeen       int                // regular files encountered within depth
	TotalAnalyzable int                // files that passed classification and filters
}

// Scanner produces snapshots. It holds no per-root state and is safe for
// concurrent use.
type Scanner struct {
	logger      *slog.Logger
	hashWorkers int
}

// New creates a scanner. hashWorkers <= 0 uses one worker per CPU.
func New(logger *slog.Logger, hashWorkers int) *Scanner {
	if hashWorkers <= 0 {
		hashWorkers = runtime.NumCPU()
	}
	return &Scanner{logger: logger, hashWorkers: hashWorkers}
}

// Scan walks root honoring filters and hashes every included file.
// Unreadable directories and files are logged and skipped; only a missing or
// non-directory root, or cancellation, fails the scan.
func (s *Scanner) Scan(ctx context.Context, root string, filters model.Filters) (*Snapshot, error) {
	absRoot, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("stat root %s: %w", absRoot, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, absRoot)
	}

	matcher := ignore.NewMatcher(ignore.MatcherOptions{
		RootDir:          absRoot,
		ExcludePatterns:  filters.ExcludePatterns,
		MaxFileSizeBytes: filters.MaxFileSizeBytes,
		UseGitignore:     filters.UseGitignore,
	})

	snapshot := &Snapshot{Root: absRoot}
	var candidates []model.FileRecord

	walkErr := filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			s.logger.Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == absRoot {
			return nil
		}

		relPath := relativePath(absRoot, path)
		depth := strings.Count(relPath, "/") + 1

		if d.IsDir() {
			if filters.MaxDepth > 0 && depth >= filters.MaxDepth {
				return filepath.SkipDir
			}
			if matcher.ShouldIgnoreDir(path) {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks, sockets and devices are not followed.
		if !d.Type().IsRegular() {
			return nil
		}
		snapshot.TotalSeen++

		if !language.IsAnalyzable(path) || matcher.ShouldIgnore(path) {
			return nil
		}

		fileInfo, err := d.Info()
		if err != nil {
			s.logger.Warn("cannot stat file", "path", path, "error", err)
			return nil
		}
		if matcher.IsFileTooLarge(fileInfo.Size()) {
			s.logger.Debug("skipping large file", "path", path, "size", fileInfo.Size())
			return nil
		}

		snapshot.TotalAnalyzable++
		candidates = append(candidates, model.FileRecord{
			RelativePath: relPath,
			AbsolutePath: path,
			Extension:    language.Extension(path),
			Language:     language.DetectLanguage(path),
			SizeBytes:    fileInfo.Size(),
		})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walking %s: %w", absRoot, walkErr)
	}

	files, err := s.hashAll(ctx, candidates)
	if err != nil {
		return nil, err
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})
	snapshot.Files = files
	return snapshot, nil
}

// hashAll fills in ContentHash with bounded parallelism. Files that cannot be
// read are dropped from the result.
func (s *Scanner) hashAll(ctx context.Context, candidates []model.FileRecord) ([]model.FileRecord, error) {
	hashed := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.hashWorkers)
	for i := range candidates {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			hash, err := HashFile(candidates[i].AbsolutePath)
			if err != nil {
				s.logger.Warn("cannot hash file", "path", candidates[i].AbsolutePath, "error", err)
				return nil
			}
			candidates[i].ContentHash = hash
			hashed[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files := make([]model.FileRecord, 0, len(candidates))
	for i := range candidates {
		if hashed[i] {
			files = append(files, candidates[i])
		}
	}
	return files, nil
}

// ResolveRoot returns the absolute path of root with symlinks resolved. The
// walk does not follow links, so a linked root must be resolved before it.
func ResolveRoot(root string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", absRoot, err)
	}
	return resolved, nil
}

// HashFile returns the hex-encoded SHA-256 of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func relativePath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
