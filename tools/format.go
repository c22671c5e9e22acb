package tools

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/aMonteSl/codexr-mcp/index"
	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/aMonteSl/codexr-mcp/watcher"
)

// FormatSummary renders a result's aggregate statistics.
func FormatSummary(result *model.DirectoryAnalysisResult) string {
	if result == nil {
		return "No analysis result yet.\n"
	}
	s := result.Summary
	meta := result.Metadata

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Files: %s (%s)\n", humanize.Comma(int64(s.TotalFiles)), formatFileSize(s.TotalSizeBytes)))
	builder.WriteString(fmt.Sprintf("Lines: %s (code %s, comments %s, blank %s)\n",
		humanize.Comma(int64(s.TotalLines)),
		humanize.Comma(int64(s.CodeLines)),
		humanize.Comma(int64(s.CommentLines)),
		humanize.Comma(int64(s.BlankLines)),
	))
	builder.WriteString(fmt.Sprintf("Functions: %s, classes: %s\n", humanize.Comma(int64(s.TotalFunctions)), humanize.Comma(int64(s.TotalClasses))))
	builder.WriteString(fmt.Sprintf("Complexity: avg %.2f, max %d\n", s.AverageComplexity, s.MaxComplexity))
	builder.WriteString(fmt.Sprintf("Comment density: %.1f%%\n", s.AverageCommentDensity*100))
	builder.WriteString(fmt.Sprintf("Parameters: avg %.2f\n", s.AverageParameters))

	if len(s.LanguageDistribution) > 0 {
		builder.WriteString("Languages: " + formatCounts(s.LanguageDistribution) + "\n")
	}
	builder.WriteString("Sizes: " + formatBuckets(s.FileSizeDistribution, model.SizeBuckets) + "\n")
	builder.WriteString("Complexity buckets: " + formatBuckets(s.ComplexityDistribution, model.ComplexityBuckets) + "\n")

	kind := "full"
	if meta.IsIncremental {
		kind = "incremental"
	}
	builder.WriteString(fmt.Sprintf("Last cycle: %s, +%d ~%d -%d =%d, analyzed %d files in %s\n",
		kind, meta.Added, meta.Modified, meta.Deleted, meta.Unchanged,
		meta.FilesAnalyzedThisSession, meta.Duration.Round(time.Millisecond)))
	if len(meta.FailedFiles) > 0 {
		builder.WriteString(fmt.Sprintf("Failed files: %s\n", strings.Join(meta.FailedFiles, ", ")))
	}
	return builder.String()
}

// FormatStatus renders the scheduling state of one root followed by its summary.
func FormatStatus(status watcher.Status, now time.Time) string {
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("── %s ──\n", status.Root))

	state := string(status.State)
	if status.State == watcher.StatePending && !status.Deadline.IsZero() {
		remaining := status.Deadline.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		state += fmt.Sprintf(" (next analysis in %s)", remaining.Round(100*time.Millisecond))
	}
	if status.RerunQueued {
		state += ", rerun queued"
	}
	builder.WriteString(fmt.Sprintf("State: %s\n", state))

	if status.Cycles > 0 {
		builder.WriteString(fmt.Sprintf("Cycles: %d, last run %s\n", status.Cycles, humanize.RelTime(status.LastRunAt, now, "ago", "from now")))
	} else {
		builder.WriteString("Cycles: 0\n")
	}
	if status.LastError != "" {
		builder.WriteString(fmt.Sprintf("Last error: %s\n", status.LastError))
	}
	builder.WriteString(FormatSummary(status.LastResult))
	return builder.String()
}

// FormatFileResults formats file metrics as human-readable text.
func FormatFileResults(files []model.FileMetrics, nameOnly bool) string {
	if len(files) == 0 {
		return "No files matched."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Found %d files:\n\n", len(files)))

	for _, file := range files {
		if nameOnly {
			builder.WriteString(file.RelativePath)
			builder.WriteString("\n")
			continue
		}
		builder.WriteString(fmt.Sprintf("  %s  (%s, %s, %d lines, %d functions, complexity %.1f)\n",
			file.RelativePath,
			file.Language,
			formatFileSize(file.SizeBytes),
			file.TotalLines,
			file.FunctionCount,
			file.AverageComplexity,
		))
	}
	if !nameOnly {
		builder.WriteString(fmt.Sprintf("\nLanguages: %s\n", formatCounts(index.LanguageCounts(files))))
	}
	return builder.String()
}

// FormatQueryHits formats metrics query hits, grouped under their root when
// more than one root is involved.
func FormatQueryHits(hits []index.QueryHit, total uint64) string {
	if len(hits) == 0 {
		return "No files matched."
	}

	multiRoot := false
	for _, hit := range hits[1:] {
		if hit.Root != hits[0].Root {
			multiRoot = true
			break
		}
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Showing %d of %s matching files (most complex first):\n\n", len(hits), humanize.Comma(int64(total))))
	for _, hit := range hits {
		path := hit.File.RelativePath
		if multiRoot {
			path = hit.Root + ": " + path
		}
		builder.WriteString(fmt.Sprintf("  %s  (%s, complexity avg %.1f max %d, %d lines, %d functions)\n",
			path,
			hit.File.Language,
			hit.File.AverageComplexity,
			hit.File.MaxComplexity,
			hit.File.TotalLines,
			hit.File.FunctionCount,
		))
	}
	return builder.String()
}

// formatCounts renders counts sorted by count descending, then by name.
func formatCounts(counts map[string]int) string {
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s %d", e.name, e.count)
	}
	return strings.Join(parts, ", ")
}

func formatBuckets(counts map[string]int, order []string) string {
	parts := make([]string, len(order))
	for i, bucket := range order {
		parts[i] = fmt.Sprintf("%s %d", bucket, counts[bucket])
	}
	return strings.Join(parts, ", ")
}

// formatFileSize converts bytes to a human-readable string.
func formatFileSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	if totalSeconds < 60 {
		return fmt.Sprintf("%ds", totalSeconds)
	}
	totalMinutes := totalSeconds / 60
	if totalMinutes < 60 {
		return fmt.Sprintf("%dm%ds", totalMinutes, totalSeconds%60)
	}
	return fmt.Sprintf("%dh%dm", totalMinutes/60, totalMinutes%60)
}
