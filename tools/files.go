package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aMonteSl/codexr-mcp/index"
	"github.com/aMonteSl/codexr-mcp/watcher"
)

// FilesArgs defines the input parameters for the codexr_files tool.
type FilesArgs struct {
	Root       string `json:"root,omitempty" jsonschema:"Watched directory (required when more than one is watched)"`
	Pattern    string `json:"pattern,omitempty" jsonschema:"Glob pattern to match files (e.g. **/*.ts or src/**/*.go); default matches all"`
	NameOnly   bool   `json:"nameOnly,omitempty" jsonschema:"If true return only file paths without metrics"`
	MaxResults int    `json:"maxResults,omitempty" jsonschema:"Maximum number of results to return (default 50)"`
}

// FilesHandler holds the dependencies for the files tool.
type FilesHandler struct {
	Registry *watcher.Registry
	Logger   *slog.Logger
}

// Handle processes a codexr_files request against the last completed result.
func (h *FilesHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args FilesArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	scheduler, err := resolveScheduler(h.Registry, args.Root)
	if err != nil {
		h.Logger.Warn("codexr_files root not resolved", "root", args.Root, "error", err)
		return errorResult("Error: %v", err), nil, nil
	}

	result := scheduler.LastResult()
	if result == nil {
		return textResult("No analysis result yet for " + scheduler.Root() + "."), nil, nil
	}

	files, err := index.SearchByGlob(result.Files, args.Pattern, args.MaxResults)
	if err != nil {
		h.Logger.Error("codexr_files failed", "pattern", args.Pattern, "error", err)
		return errorResult("Search error: %v", err), nil, nil
	}

	h.Logger.Info("codexr_files",
		"root", scheduler.Root(),
		"pattern", args.Pattern,
		"results", len(files),
		"elapsed", time.Since(start),
	)

	return textResult(FormatFileResults(files, args.NameOnly)), nil, nil
}
