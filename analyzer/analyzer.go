// Package analyzer computes code metrics for a single source file.
package analyzer

import (
	"context"
	"errors"
	"time"

	"github.com/aMonteSl/codexr-mcp/model"
)

// ErrBinaryFile is returned when an analyzable extension holds binary content.
var ErrBinaryFile = errors.New("binary content")

// Analyzer computes metrics for one file. Implementations must be safe for
// concurrent use.
type Analyzer interface {
	Analyze(ctx context.Context, absolutePath string) (*model.CodeMetrics, error)
}

// Func adapts a plain function to the Analyzer interface.
type Func func(ctx context.Context, absolutePath string) (*model.CodeMetrics, error)

func (f Func) Analyze(ctx context.Context, absolutePath string) (*model.CodeMetrics, error) {
	return f(ctx, absolutePath)
}

// WithTimeout bounds every Analyze call of next by d. A zero or negative d
// returns next unchanged.
func WithTimeout(next Analyzer, d time.Duration) Analyzer {
	if d <= 0 {
		return next
	}
	return Func(func(ctx context.Context, absolutePath string) (*model.CodeMetrics, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return next.Analyze(ctx, absolutePath)
	})
}
