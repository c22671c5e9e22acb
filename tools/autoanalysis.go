package tools

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aMonteSl/codexr-mcp/watcher"
)

// AutoAnalysisArgs defines the input parameters for the codexr_autoanalysis tool.
// Omitted fields are left unchanged.
type AutoAnalysisArgs struct {
	Enabled    *bool `json:"enabled,omitempty" jsonschema:"Turn automatic re-analysis on file changes on or off"`
	DebounceMs int   `json:"debounceMs,omitempty" jsonschema:"Quiet period in milliseconds before a re-analysis starts"`
}

// AutoAnalysisHandler holds the dependencies for the autoanalysis tool.
type AutoAnalysisHandler struct {
	Registry *watcher.Registry
	Logger   *slog.Logger
}

// Handle processes a codexr_autoanalysis request.
func (h *AutoAnalysisHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args AutoAnalysisArgs) (*mcp.CallToolResult, any, error) {
	if args.DebounceMs < 0 {
		return errorResult("Error: debounceMs must not be negative"), nil, nil
	}

	if args.DebounceMs > 0 {
		h.Registry.SetDebounceInterval(time.Duration(args.DebounceMs) * time.Millisecond)
	}
	if args.Enabled != nil {
		// Countdowns armed before disabling elapse without starting a cycle.
		h.Registry.SetEnabled(*args.Enabled)
	}

	enabled := h.Registry.Enabled()
	debounce := h.Registry.DebounceInterval()
	h.Logger.Info("codexr_autoanalysis", "enabled", enabled, "debounce", debounce)

	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return textResult(fmt.Sprintf("Auto-analysis: %s\nDebounce interval: %s\nWatched directories: %d",
		state, debounce, len(h.Registry.Roots()))), nil, nil
}
