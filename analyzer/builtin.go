package analyzer

import (
	"context"
	"fmt"
	"os"

	"github.com/aMonteSl/codexr-mcp/language"
	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/samber/lo"
)

// Builtin is the in-process analyzer. Go sources are parsed with go/parser;
// every other language uses a declaration pattern table.
type Builtin struct{}

// NewBuiltin creates the in-process analyzer.
func NewBuiltin() *Builtin {
	return &Builtin{}
}

// Analyze reads the file and computes its metrics.
func (b *Builtin) Analyze(ctx context.Context, absolutePath string) (*model.CodeMetrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(absolutePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", absolutePath, err)
	}
	if language.IsBinaryContent(data) {
		return nil, fmt.Errorf("%w: %s", ErrBinaryFile, absolutePath)
	}
	return AnalyzeSource(absolutePath, data)
}

// AnalyzeSource computes metrics for already loaded source text. The language
// is taken from the path's extension.
func AnalyzeSource(path string, src []byte) (*model.CodeMetrics, error) {
	lang := language.DetectLanguage(path)
	syntax, ok := commentSyntaxByLanguage[lang]
	if !ok {
		syntax = cStyle
	}

	lines := splitLines(string(src))
	kinds := classifyLines(lines, syntax)
	counts := tally(kinds)

	var (
		functions []model.FunctionMetrics
		classes   int
	)
	if lang == "Go" {
		var err error
		functions, classes, err = analyzeGoSource(path, src)
		if err != nil {
			return nil, err
		}
	} else if patterns, ok := patternsByLanguage[lang]; ok {
		functions = matchFunctions(lines, kinds, patterns)
		classes = countClasses(lines, kinds, patterns)
	}

	metrics := &model.CodeMetrics{
		TotalLines:    counts.total,
		CodeLines:     counts.code,
		CommentLines:  counts.comment,
		BlankLines:    counts.blank,
		FunctionCount: len(functions),
		ClassCount:    classes,
		Functions:     functions,
	}
	if len(functions) > 0 {
		n := float64(len(functions))
		metrics.AverageComplexity = float64(lo.SumBy(functions, func(f model.FunctionMetrics) int { return f.Complexity })) / n
		metrics.AverageParameters = float64(lo.SumBy(functions, func(f model.FunctionMetrics) int { return f.Parameters })) / n
		metrics.MaxComplexity = lo.MaxBy(functions, func(a, b model.FunctionMetrics) bool {
			return a.Complexity > b.Complexity
		}).Complexity
	}
	return metrics, nil
}
