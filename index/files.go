package index

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/aMonteSl/codexr-mcp/model"
)

// SearchByGlob returns the files whose relative path matches a doublestar glob
// pattern, in the order given. An empty pattern matches everything.
func SearchByGlob(files []model.FileMetrics, pattern string, maxResults int) ([]model.FileMetrics, error) {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	// Normalize pattern to forward slashes
	pattern = strings.ReplaceAll(pattern, "\\", "/")
	if pattern == "" {
		pattern = "**"
	}

	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	var results []model.FileMetrics
	for _, file := range files {
		if len(results) >= maxResults {
			break
		}
		matched, err := doublestar.Match(pattern, file.RelativePath)
		if err != nil {
			continue
		}
		if matched {
			results = append(results, file)
		}
	}
	return results, nil
}

// LanguageCounts returns a map of language -> file count.
func LanguageCounts(files []model.FileMetrics) map[string]int {
	counts := make(map[string]int)
	for _, file := range files {
		counts[file.Language]++
	}
	return counts
}
