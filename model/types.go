// Package model holds the data types shared by the scanner, the change
// detector, the merge engine and result consumers.
package model

import (
	"sort"
	"time"
)

// ResultVersion is the schema version of a serialized DirectoryAnalysisResult.
const ResultVersion = 1

// Filters are the scan filters applied to a root.
type Filters struct {
	// MaxDepth limits recursion: 1 scans immediate children only, 0 is unbounded.
	MaxDepth         int      `json:"maxDepth" yaml:"maxDepth"`
	ExcludePatterns  []string `json:"excludePatterns,omitempty" yaml:"excludePatterns,omitempty"`
	MaxFileSizeBytes int64    `json:"maxFileSizeBytes" yaml:"maxFileSizeBytes"`
	UseGitignore     bool     `json:"useGitignore" yaml:"useGitignore"`
}

// IsShallow reports whether only the root's immediate children are scanned.
func (f Filters) IsShallow() bool {
	return f.MaxDepth == 1
}

// FileRecord is one analyzable file as seen by a single scan.
type FileRecord struct {
	RelativePath string `json:"relativePath" yaml:"relativePath"` // forward slashes, join key across scans
	AbsolutePath string `json:"absolutePath" yaml:"absolutePath"`
	Extension    string `json:"extension" yaml:"extension"`
	Language     string `json:"language" yaml:"language"`
	SizeBytes    int64  `json:"sizeBytes" yaml:"sizeBytes"`
	ContentHash  string `json:"contentHash" yaml:"contentHash"` // hex SHA-256 of the file bytes
}

// FunctionMetrics describes one function reported by the analyzer.
type FunctionMetrics struct {
	Name       string `json:"name" yaml:"name"`
	StartLine  int    `json:"startLine" yaml:"startLine"`
	EndLine    int    `json:"endLine" yaml:"endLine"`
	LineCount  int    `json:"lineCount" yaml:"lineCount"`
	Complexity int    `json:"complexity" yaml:"complexity"`
	Parameters int    `json:"parameters" yaml:"parameters"`
}

// CodeMetrics is the analyzer's output for a single file.
type CodeMetrics struct {
	TotalLines        int               `json:"totalLines" yaml:"totalLines"`
	CodeLines         int               `json:"codeLines" yaml:"codeLines"`
	CommentLines      int               `json:"commentLines" yaml:"commentLines"`
	BlankLines        int               `json:"blankLines" yaml:"blankLines"`
	FunctionCount     int               `json:"functionCount" yaml:"functionCount"`
	ClassCount        int               `json:"classCount" yaml:"classCount"`
	AverageComplexity float64           `json:"averageComplexity" yaml:"averageComplexity"`
	MaxComplexity     int               `json:"maxComplexity" yaml:"maxComplexity"`
	AverageParameters float64           `json:"averageParameters" yaml:"averageParameters"`
	Functions         []FunctionMetrics `json:"functions,omitempty" yaml:"functions,omitempty"`
}

// FileMetrics is a FileRecord together with the analyzer output computed for it.
// ContentHash always equals the hash of the record that justified the entry.
type FileMetrics struct {
	FileRecord       `yaml:",inline"`
	CodeMetrics      `yaml:",inline"`
	AnalyzedAt       time.Time     `json:"analyzedAt" yaml:"analyzedAt"`
	AnalysisDuration time.Duration `json:"analysisDuration" yaml:"analysisDuration"`
}

// CommentDensity is the ratio of comment lines to total lines.
func (m FileMetrics) CommentDensity() float64 {
	if m.TotalLines == 0 {
		return 0
	}
	return float64(m.CommentLines) / float64(m.TotalLines)
}

// Metadata describes how a DirectoryAnalysisResult was produced.
type Metadata struct {
	Filters                  Filters       `json:"filters" yaml:"filters"`
	IsIncremental            bool          `json:"isIncremental" yaml:"isIncremental"`
	FilesAnalyzedThisSession int           `json:"filesAnalyzedThisSession" yaml:"filesAnalyzedThisSession"`
	TotalFilesConsidered     int           `json:"totalFilesConsidered" yaml:"totalFilesConsidered"`
	TotalFilesSeen           int           `json:"totalFilesSeen" yaml:"totalFilesSeen"`
	Added                    int           `json:"added" yaml:"added"`
	Modified                 int           `json:"modified" yaml:"modified"`
	Deleted                  int           `json:"deleted" yaml:"deleted"`
	Unchanged                int           `json:"unchanged" yaml:"unchanged"`
	FailedFiles              []string      `json:"failedFiles,omitempty" yaml:"failedFiles,omitempty"`
	// FailedRecords holds the scanned record of every failed file. A failed file
	// is analyzed again only once its content hash differs from this record.
	FailedRecords []FileRecord `json:"failedRecords,omitempty" yaml:"failedRecords,omitempty"`
	StartedAt                time.Time     `json:"startedAt" yaml:"startedAt"`
	CompletedAt              time.Time     `json:"completedAt" yaml:"completedAt"`
	Duration                 time.Duration `json:"duration" yaml:"duration"`
}

// DirectoryAnalysisResult is the mergeable artifact of one completed analysis cycle.
// A result is never modified after construction; the next cycle supersedes it.
type DirectoryAnalysisResult struct {
	Version       int           `json:"version" yaml:"version"`
	DirectoryPath string        `json:"directoryPath" yaml:"directoryPath"`
	Files         []FileMetrics `json:"files" yaml:"files"` // sorted by RelativePath
	Summary       Summary       `json:"summary" yaml:"summary"`
	Metadata      Metadata      `json:"metadata" yaml:"metadata"`
}

// File returns the metrics for a relative path.
func (r *DirectoryAnalysisResult) File(relativePath string) (FileMetrics, bool) {
	i := sort.Search(len(r.Files), func(i int) bool {
		return r.Files[i].RelativePath >= relativePath
	})
	if i < len(r.Files) && r.Files[i].RelativePath == relativePath {
		return r.Files[i], true
	}
	return FileMetrics{}, false
}

// Records returns the FileRecord of every file in the result.
func (r *DirectoryAnalysisResult) Records() []FileRecord {
	records := make([]FileRecord, len(r.Files))
	for i := range r.Files {
		records[i] = r.Files[i].FileRecord
	}
	return records
}

// SortFiles orders files by relative path.
func SortFiles(files []FileMetrics) {
	sort.Slice(files, func(i, j int) bool {
		return files[i].RelativePath < files[j].RelativePath
	})
}
