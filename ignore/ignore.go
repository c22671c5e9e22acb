package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// DefaultMaxFileSizeBytes applies when no positive size limit is configured.
const DefaultMaxFileSizeBytes = 1024 * 1024

// Matcher determines whether a path under a root is excluded from scanning.
// It combines the fixed pruned-directory list, user exclude patterns and,
// optionally, the root's .gitignore.
// Thread-safe: Reload() acquires a write lock, the Should* methods a read lock.
type Matcher struct {
	mu               sync.RWMutex
	rootDir          string
	useGitignore     bool
	gitIgnore        gitignore.GitIgnore
	excludePatterns  []string
	maxFileSizeBytes int64
}

// MatcherOptions configures the matcher.
type MatcherOptions struct {
	RootDir          string
	ExcludePatterns  []string
	MaxFileSizeBytes int64
	UseGitignore     bool
}

// NewMatcher creates a matcher for one root directory.
func NewMatcher(options MatcherOptions) *Matcher {
	matcher := &Matcher{
		rootDir:          options.RootDir,
		useGitignore:     options.UseGitignore,
		excludePatterns:  normalizePatterns(options.ExcludePatterns),
		maxFileSizeBytes: options.MaxFileSizeBytes,
	}
	if matcher.maxFileSizeBytes <= 0 {
		matcher.maxFileSizeBytes = DefaultMaxFileSizeBytes
	}
	if matcher.useGitignore {
		matcher.gitIgnore = loadIgnoreFile(filepath.Join(options.RootDir, ".gitignore"), options.RootDir)
	}
	return matcher
}

// ShouldIgnoreDir returns true if a directory must be skipped without descending.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	if IsPrunedDir(filepath.Base(absolutePath)) {
		return true
	}
	return m.excluded(absolutePath, true)
}

// ShouldIgnore returns true if a file is excluded by a pattern or .gitignore.
func (m *Matcher) ShouldIgnore(absolutePath string) bool {
	return m.excluded(absolutePath, false)
}

// IsFileTooLarge returns true if the file exceeds the max file size limit.
func (m *Matcher) IsFileTooLarge(fileSize int64) bool {
	return fileSize > m.maxFileSizeBytes
}

// MaxFileSizeBytes returns the effective maximum file size.
func (m *Matcher) MaxFileSizeBytes() int64 {
	return m.maxFileSizeBytes
}

// Reload re-reads the root's .gitignore from disk.
func (m *Matcher) Reload() {
	if !m.useGitignore {
		return
	}
	gi := loadIgnoreFile(filepath.Join(m.rootDir, ".gitignore"), m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.gitIgnore = gi
}

func (m *Matcher) excluded(absolutePath string, isDir bool) bool {
	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		relativePath = absolutePath
	}
	relativePath = filepath.ToSlash(relativePath)
	if relativePath == "." {
		return false
	}

	if m.matchesExcludePatterns(relativePath, isDir) {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.gitIgnore != nil {
		match := m.gitIgnore.Relative(relativePath, isDir)
		if match != nil && match.Ignore() {
			return true
		}
	}
	return false
}

// matchesExcludePatterns matches against both the relative path and the base name.
// A pattern ending in "/" only matches directories.
func (m *Matcher) matchesExcludePatterns(relativePath string, isDir bool) bool {
	baseName := pathBase(relativePath)
	for _, pattern := range m.excludePatterns {
		dirOnly := strings.HasSuffix(pattern, "/")
		if dirOnly {
			if !isDir {
				continue
			}
			pattern = strings.TrimSuffix(pattern, "/")
		}
		if matched, err := doublestar.Match(pattern, relativePath); err == nil && matched {
			return true
		}
		if matched, err := doublestar.Match(pattern, baseName); err == nil && matched {
			return true
		}
	}
	return false
}

// ValidatePatterns reports the first malformed exclude pattern.
func ValidatePatterns(patterns []string) error {
	for _, pattern := range normalizePatterns(patterns) {
		if !doublestar.ValidatePattern(strings.TrimSuffix(pattern, "/")) {
			return fmt.Errorf("invalid exclude pattern: %q", pattern)
		}
	}
	return nil
}

func normalizePatterns(patterns []string) []string {
	normalized := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
		if p == "" {
			continue
		}
		normalized = append(normalized, p)
	}
	return normalized
}

func pathBase(relativePath string) string {
	if i := strings.LastIndexByte(relativePath, '/'); i >= 0 {
		return relativePath[i+1:]
	}
	return relativePath
}

// loadIgnoreFile reads an ignore file and creates a GitIgnore matcher from it.
// Uses io.Reader approach to ensure the file handle is properly closed on Windows.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
