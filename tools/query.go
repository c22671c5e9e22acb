package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aMonteSl/codexr-mcp/index"
	"github.com/aMonteSl/codexr-mcp/watcher"
)

// QueryArgs defines the input parameters for the codexr_query tool.
type QueryArgs struct {
	Root          string  `json:"root,omitempty" jsonschema:"Restrict to one watched directory (default: all)"`
	Language      string  `json:"language,omitempty" jsonschema:"Language name, e.g. Go or Python"`
	MinComplexity float64 `json:"minComplexity,omitempty" jsonschema:"Minimum average function complexity"`
	MaxComplexity float64 `json:"maxComplexity,omitempty" jsonschema:"Maximum average function complexity"`
	MinLines      int     `json:"minLines,omitempty" jsonschema:"Minimum total line count"`
	MaxResults    int     `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default 50)"`
}

// QueryHandler holds the dependencies for the query tool.
type QueryHandler struct {
	Index    *index.MetricsIndex
	Registry *watcher.Registry
	Logger   *slog.Logger
}

// Handle processes a codexr_query request.
func (h *QueryHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args QueryArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if args.MinComplexity < 0 || args.MaxComplexity < 0 || args.MinLines < 0 {
		return errorResult("Error: filters must not be negative"), nil, nil
	}
	if args.MaxComplexity > 0 && args.MinComplexity > args.MaxComplexity {
		return errorResult("Error: minComplexity is greater than maxComplexity"), nil, nil
	}

	root := ""
	if args.Root != "" {
		scheduler, err := resolveScheduler(h.Registry, args.Root)
		if err != nil {
			return errorResult("Error: %v", err), nil, nil
		}
		root = scheduler.Root()
	}

	hits, total, err := h.Index.Query(index.QueryOptions{
		Root:          root,
		Language:      args.Language,
		MinComplexity: args.MinComplexity,
		MaxComplexity: args.MaxComplexity,
		MinLines:      args.MinLines,
		MaxResults:    args.MaxResults,
	})
	if err != nil {
		h.Logger.Error("codexr_query failed", "error", err)
		return errorResult("Query error: %v", err), nil, nil
	}

	h.Logger.Info("codexr_query",
		"root", root,
		"language", args.Language,
		"results", len(hits),
		"total", total,
		"elapsed", time.Since(start),
	)

	return textResult(FormatQueryHits(hits, total)), nil, nil
}
