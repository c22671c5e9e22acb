package model

import (
	"github.com/samber/lo"
)

// File size buckets.
const (
	SizeTiny   = "tiny"   // < 1 KiB
	SizeSmall  = "small"  // < 10 KiB
	SizeMedium = "medium" // < 100 KiB
	SizeLarge  = "large"  // >= 100 KiB
)

// Complexity buckets, by a file's average function complexity.
const (
	ComplexityLow      = "low"      // <= 5
	ComplexityModerate = "moderate" // <= 10
	ComplexityHigh     = "high"     // <= 20
	ComplexityCritical = "critical" // > 20
)

// SizeBuckets lists the file size buckets in ascending order.
var SizeBuckets = []string{SizeTiny, SizeSmall, SizeMedium, SizeLarge}

// ComplexityBuckets lists the complexity buckets in ascending order.
var ComplexityBuckets = []string{ComplexityLow, ComplexityModerate, ComplexityHigh, ComplexityCritical}

// Summary holds aggregate statistics derived from a result's files.
type Summary struct {
	TotalFiles             int            `json:"totalFiles" yaml:"totalFiles"`
	TotalLines             int            `json:"totalLines" yaml:"totalLines"`
	CodeLines              int            `json:"codeLines" yaml:"codeLines"`
	CommentLines           int            `json:"commentLines" yaml:"commentLines"`
	BlankLines             int            `json:"blankLines" yaml:"blankLines"`
	TotalFunctions         int            `json:"totalFunctions" yaml:"totalFunctions"`
	TotalClasses           int            `json:"totalClasses" yaml:"totalClasses"`
	TotalSizeBytes         int64          `json:"totalSizeBytes" yaml:"totalSizeBytes"`
	AverageComplexity      float64        `json:"averageComplexity" yaml:"averageComplexity"`
	AverageCommentDensity  float64        `json:"averageCommentDensity" yaml:"averageCommentDensity"`
	AverageParameters      float64        `json:"averageParameters" yaml:"averageParameters"`
	MaxComplexity          int            `json:"maxComplexity" yaml:"maxComplexity"`
	LanguageDistribution   map[string]int `json:"languageDistribution" yaml:"languageDistribution"`
	FileSizeDistribution   map[string]int `json:"fileSizeDistribution" yaml:"fileSizeDistribution"`
	ComplexityDistribution map[string]int `json:"complexityDistribution" yaml:"complexityDistribution"`
}

// ComputeSummary derives the aggregate statistics for a set of files from scratch.
// Means are arithmetic means over the files; with no files every mean is 0.
func ComputeSummary(files []FileMetrics) Summary {
	summary := Summary{
		TotalFiles:             len(files),
		TotalLines:             lo.SumBy(files, func(f FileMetrics) int { return f.TotalLines }),
		CodeLines:              lo.SumBy(files, func(f FileMetrics) int { return f.CodeLines }),
		CommentLines:           lo.SumBy(files, func(f FileMetrics) int { return f.CommentLines }),
		BlankLines:             lo.SumBy(files, func(f FileMetrics) int { return f.BlankLines }),
		TotalFunctions:         lo.SumBy(files, func(f FileMetrics) int { return f.FunctionCount }),
		TotalClasses:           lo.SumBy(files, func(f FileMetrics) int { return f.ClassCount }),
		TotalSizeBytes:         lo.SumBy(files, func(f FileMetrics) int64 { return f.SizeBytes }),
		LanguageDistribution:   lo.CountValuesBy(files, func(f FileMetrics) string { return f.Language }),
		FileSizeDistribution:   emptyDistribution(SizeBuckets),
		ComplexityDistribution: emptyDistribution(ComplexityBuckets),
	}

	for _, f := range files {
		summary.FileSizeDistribution[SizeBucket(f.SizeBytes)]++
		summary.ComplexityDistribution[ComplexityBucket(f.AverageComplexity)]++
		if f.MaxComplexity > summary.MaxComplexity {
			summary.MaxComplexity = f.MaxComplexity
		}
	}

	if len(files) == 0 {
		return summary
	}
	n := float64(len(files))
	summary.AverageComplexity = lo.SumBy(files, func(f FileMetrics) float64 { return f.AverageComplexity }) / n
	summary.AverageCommentDensity = lo.SumBy(files, func(f FileMetrics) float64 { return f.CommentDensity() }) / n
	summary.AverageParameters = lo.SumBy(files, func(f FileMetrics) float64 { return f.AverageParameters }) / n
	return summary
}

// SizeBucket classifies a file size.
func SizeBucket(sizeBytes int64) string {
	switch {
	case sizeBytes < 1024:
		return SizeTiny
	case sizeBytes < 10*1024:
		return SizeSmall
	case sizeBytes < 100*1024:
		return SizeMedium
	default:
		return SizeLarge
	}
}

// ComplexityBucket classifies an average complexity value.
func ComplexityBucket(complexity float64) string {
	switch {
	case complexity <= 5:
		return ComplexityLow
	case complexity <= 10:
		return ComplexityModerate
	case complexity <= 20:
		return ComplexityHigh
	default:
		return ComplexityCritical
	}
}

func emptyDistribution(buckets []string) map[string]int {
	dist := make(map[string]int, len(buckets))
	for _, b := range buckets {
		dist[b] = 0
	}
	return dist
}
