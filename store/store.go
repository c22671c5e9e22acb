// Package store persists the last analysis result of each root so a restart
// resumes incrementally instead of re-analyzing everything.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/zeebo/xxh3"
)

// Store keeps one JSON file per root in a directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a store rooted at dir. The directory is created on first save.
func New(dir string, logger *slog.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// DefaultDir returns the per-user cache directory for persisted results.
func DefaultDir() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolving user cache dir: %w", err)
	}
	return filepath.Join(cacheDir, "codexr"), nil
}

// Dir returns the directory results are stored in.
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the file that holds the result for root.
func (s *Store) Path(root string) string {
	return filepath.Join(s.dir, fmt.Sprintf("%016x.json", xxh3.HashString(normalizeRoot(root))))
}

// Save writes result atomically, replacing any earlier result for its root.
func (s *Store) Save(result *model.DirectoryAnalysisResult) error {
	if result == nil {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("creating state dir %s: %w", s.dir, err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result for %s: %w", result.DirectoryPath, err)
	}

	path := s.Path(result.DirectoryPath)
	tmpFile, err := os.CreateTemp(s.dir, ".result-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", s.dir, err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file %s: %w", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}

	s.logger.Debug("saved result", "root", result.DirectoryPath, "path", path, "files", len(result.Files))
	return nil
}

// Load returns the stored result for root. A missing, unreadable-as-JSON or
// outdated file yields nil without error so the caller runs a full analysis.
func (s *Store) Load(root string) (*model.DirectoryAnalysisResult, error) {
	path := s.Path(root)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var result model.DirectoryAnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		s.logger.Warn("discarding corrupt result", "path", path, "error", err)
		return nil, nil
	}
	if result.Version != model.ResultVersion {
		s.logger.Info("discarding result with old schema", "path", path, "version", result.Version)
		return nil, nil
	}
	if result.DirectoryPath != normalizeRoot(root) {
		s.logger.Warn("stored result belongs to another root", "path", path, "root", result.DirectoryPath)
		return nil, nil
	}
	return &result, nil
}

// Delete removes the stored result for root, if any.
func (s *Store) Delete(root string) error {
	if err := os.Remove(s.Path(root)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting result for %s: %w", root, err)
	}
	return nil
}

func normalizeRoot(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return filepath.Clean(root)
	}
	return abs
}
