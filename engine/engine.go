// Package engine runs analysis cycles: scan a root, diff it against the
// previous result, analyze only what changed and merge.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aMonteSl/codexr-mcp/analyzer"
	"github.com/aMonteSl/codexr-mcp/changes"
	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/aMonteSl/codexr-mcp/scanner"
	"golang.org/x/sync/errgroup"
)

// FailurePolicy decides what happens to a file whose analysis failed.
type FailurePolicy string

const (
	// FailureOmit leaves a failed file out of the merged result.
	FailureOmit FailurePolicy = "omit"
	// FailureKeepPrevious keeps a failed modified file at its previous metrics.
	// A failed added file has no previous metrics and is omitted.
	FailureKeepPrevious FailurePolicy = "keep-previous"
)

// DefaultConcurrency is the number of files analyzed in parallel when unset.
const DefaultConcurrency = 4

// Scanner produces the snapshot a cycle starts from.
type Scanner interface {
	Scan(ctx context.Context, root string, filters model.Filters) (*scanner.Snapshot, error)
}

// Options tunes an Engine.
type Options struct {
	Concurrency   int
	FailurePolicy FailurePolicy
}

// Engine runs analysis cycles. It keeps no state between cycles: the previous
// result is always passed in by the caller.
type Engine struct {
	scanner       Scanner
	analyzer      analyzer.Analyzer
	logger        *slog.Logger
	concurrency   int
	failurePolicy FailurePolicy
	now           func() time.Time
}

// Outcome is the product of one cycle.
type Outcome struct {
	Result *model.DirectoryAnalysisResult
	// Changes is nil on an initial run.
	Changes *changes.ChangeSet
	Initial bool
	// Reused is set when nothing changed and Result is the previous result itself.
	Reused bool
}

// HasChanges reports whether the cycle produced a new result.
func (o *Outcome) HasChanges() bool {
	return !o.Reused
}

// New creates an engine.
func New(sc Scanner, an analyzer.Analyzer, logger *slog.Logger, options Options) *Engine {
	if options.Concurrency <= 0 {
		options.Concurrency = DefaultConcurrency
	}
	if options.FailurePolicy == "" {
		options.FailurePolicy = FailureOmit
	}
	return &Engine{
		scanner:       sc,
		analyzer:      an,
		logger:        logger,
		concurrency:   options.Concurrency,
		failurePolicy: options.FailurePolicy,
		now:           time.Now,
	}
}

// Run executes one cycle for root. previous may be nil, in which case every
// file is analyzed. When nothing changed since previous, previous itself is
// returned. A cancelled cycle returns ctx.Err() and no result; the caller's
// previous result stays authoritative.
func (e *Engine) Run(ctx context.Context, root string, filters model.Filters, previous *model.DirectoryAnalysisResult) (*Outcome, error) {
	startedAt := e.now()

	snapshot, err := e.scanner.Scan(ctx, root, filters)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	if previous != nil && previous.DirectoryPath != snapshot.Root {
		e.logger.Info("previous result belongs to another directory, running full analysis",
			"root", snapshot.Root, "previous", previous.DirectoryPath)
		previous = nil
	}

	if previous == nil {
		analyzed, failed, err := e.analyzeAll(ctx, snapshot.Files)
		if err != nil {
			return nil, err
		}
		result := e.buildResult(snapshot, filters, analyzed, failed, startedAt)
		result.Metadata.Added = len(snapshot.Files)
		result.Metadata.FilesAnalyzedThisSession = len(snapshot.Files)
		e.logCycle(result)
		return &Outcome{Result: result, Initial: true}, nil
	}

	set := changes.Detect(snapshot.Files, baselineRecords(previous))
	if !set.HasChanges {
		e.logger.Debug("no changes detected", "root", snapshot.Root, "files", len(set.Unchanged))
		return &Outcome{Result: previous, Changes: &set, Reused: true}, nil
	}

	analysisSet := set.AnalysisSet()
	analyzed, failed, err := e.analyzeAll(ctx, analysisSet)
	if err != nil {
		return nil, err
	}

	failed = append(carriedFailures(previous, set), failed...)
	merged := e.merge(previous, set, analyzed, failed)
	result := e.buildResult(snapshot, filters, merged, failed, startedAt)
	result.Metadata.IsIncremental = true
	result.Metadata.FilesAnalyzedThisSession = len(analysisSet)
	counts := set.Counts()
	result.Metadata.Added = counts.Added
	result.Metadata.Modified = counts.Modified
	result.Metadata.Deleted = counts.Deleted
	result.Metadata.Unchanged = counts.Unchanged
	e.logCycle(result)
	return &Outcome{Result: result, Changes: &set}, nil
}

// baselineRecords is what the current scan is diffed against: the records of
// previous, with every failed file at the hash it failed with. A failed file
// whose content did not change since is then unchanged and not retried.
func baselineRecords(previous *model.DirectoryAnalysisResult) []model.FileRecord {
	records := previous.Records()
	if len(previous.Metadata.FailedRecords) == 0 {
		return records
	}
	positions := make(map[string]int, len(records))
	for i, record := range records {
		positions[record.RelativePath] = i
	}
	for _, record := range previous.Metadata.FailedRecords {
		if i, ok := positions[record.RelativePath]; ok {
			records[i] = record
			continue
		}
		records = append(records, record)
	}
	return records
}

// carriedFailures returns the previous failures whose content is unchanged.
func carriedFailures(previous *model.DirectoryAnalysisResult, set changes.ChangeSet) []model.FileRecord {
	if len(previous.Metadata.FailedRecords) == 0 {
		return nil
	}
	unchanged := make(map[string]struct{}, len(set.Unchanged))
	for _, record := range set.Unchanged {
		unchanged[record.RelativePath] = struct{}{}
	}
	var carried []model.FileRecord
	for _, record := range previous.Metadata.FailedRecords {
		if _, ok := unchanged[record.RelativePath]; ok {
			carried = append(carried, record)
		}
	}
	return carried
}

// analyzeAll analyzes files with bounded parallelism. It returns the
// successful results, the records that failed, and ctx.Err() when the cycle
// was cancelled.
func (e *Engine) analyzeAll(ctx context.Context, files []model.FileRecord) ([]model.FileMetrics, []model.FileRecord, error) {
	type outcome struct {
		metrics model.FileMetrics
		err     error
	}
	outcomes := make([]outcome, len(files))

	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, record := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				outcomes[i].err = err
				return nil
			}
			started := e.now()
			metrics, err := e.analyzer.Analyze(ctx, record.AbsolutePath)
			if err != nil {
				outcomes[i].err = err
				return nil
			}
			outcomes[i].metrics = model.FileMetrics{
				FileRecord:       record,
				CodeMetrics:      *metrics,
				AnalyzedAt:       e.now(),
				AnalysisDuration: time.Since(started),
			}
			e.logger.Debug("analyzed file", "path", record.RelativePath, "duration", outcomes[i].metrics.AnalysisDuration)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		e.logger.Info("analysis cycle cancelled", "error", err)
		return nil, nil, err
	}

	analyzed := make([]model.FileMetrics, 0, len(files))
	var failed []model.FileRecord
	for i, o := range outcomes {
		if o.err != nil {
			e.logger.Warn("file analysis failed", "path", files[i].RelativePath, "error", o.err)
			failed = append(failed, files[i])
			continue
		}
		analyzed = append(analyzed, o.metrics)
	}
	return analyzed, failed, nil
}

// merge builds the new file list: unchanged files carried over verbatim from
// previous, fresh metrics for analyzed files, deleted files dropped. Unchanged
// failures stay out, or at their previous entry under keep-previous, because
// they are carried exactly as previous holds them.
func (e *Engine) merge(previous *model.DirectoryAnalysisResult, set changes.ChangeSet, analyzed []model.FileMetrics, failed []model.FileRecord) []model.FileMetrics {
	merged := make([]model.FileMetrics, 0, len(set.Unchanged)+len(analyzed))
	for _, record := range set.Unchanged {
		if prev, ok := previous.File(record.RelativePath); ok {
			merged = append(merged, prev)
		}
	}
	merged = append(merged, analyzed...)

	if e.failurePolicy == FailureKeepPrevious && len(failed) > 0 {
		modified := make(map[string]struct{}, len(set.Modified))
		for _, record := range set.Modified {
			modified[record.RelativePath] = struct{}{}
		}
		for _, record := range failed {
			if _, ok := modified[record.RelativePath]; !ok {
				continue
			}
			if prev, ok := previous.File(record.RelativePath); ok {
				merged = append(merged, prev)
			}
		}
	}

	model.SortFiles(merged)
	return merged
}

func (e *Engine) buildResult(snapshot *scanner.Snapshot, filters model.Filters, files []model.FileMetrics, failed []model.FileRecord, startedAt time.Time) *model.DirectoryAnalysisResult {
	model.SortFiles(files)
	sort.Slice(failed, func(i, j int) bool { return failed[i].RelativePath < failed[j].RelativePath })
	var failedPaths []string
	if len(failed) > 0 {
		failedPaths = changes.Paths(failed)
	}
	completedAt := e.now()
	return &model.DirectoryAnalysisResult{
		Version:       model.ResultVersion,
		DirectoryPath: snapshot.Root,
		Files:         files,
		Summary:       model.ComputeSummary(files),
		Metadata: model.Metadata{
			Filters:              filters,
			TotalFilesConsidered: len(files),
			TotalFilesSeen:       snapshot.TotalSeen,
			FailedFiles:          failedPaths,
			FailedRecords:        failed,
			StartedAt:            startedAt,
			CompletedAt:          completedAt,
			Duration:             completedAt.Sub(startedAt),
		},
	}
}

func (e *Engine) logCycle(result *model.DirectoryAnalysisResult) {
	meta := result.Metadata
	e.logger.Info("analysis cycle complete",
		"root", result.DirectoryPath,
		"incremental", meta.IsIncremental,
		"analyzed", meta.FilesAnalyzedThisSession,
		"files", meta.TotalFilesConsidered,
		"added", meta.Added,
		"modified", meta.Modified,
		"deleted", meta.Deleted,
		"failed", len(meta.FailedFiles),
		"duration", meta.Duration,
	)
}
