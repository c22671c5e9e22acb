package tools

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aMonteSl/codexr-mcp/index"
	"github.com/aMonteSl/codexr-mcp/watcher"
)

// StatusArgs defines the input parameters for the codexr_status tool.
type StatusArgs struct {
	Root string `json:"root,omitempty" jsonschema:"Watched directory to report on (default: all watched directories)"`
}

// StatusHandler holds the dependencies for the status tool.
type StatusHandler struct {
	Registry  *watcher.Registry
	Index     *index.MetricsIndex // optional
	StartTime time.Time
	Logger    *slog.Logger
}

// Handle processes a codexr_status request.
func (h *StatusHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, any, error) {
	schedulers := h.Registry.Schedulers()
	if args.Root != "" {
		scheduler, err := resolveScheduler(h.Registry, args.Root)
		if err != nil {
			return errorResult("Error: %v", err), nil, nil
		}
		schedulers = []*watcher.Scheduler{scheduler}
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	now := time.Now()

	h.Logger.Info("codexr_status",
		"roots", len(schedulers),
		"memory", memStats.Alloc,
		"uptime", now.Sub(h.StartTime),
	)

	var builder strings.Builder
	builder.WriteString("=== codexr Status ===\n\n")

	auto := "disabled"
	if h.Registry.Enabled() {
		auto = "enabled"
	}
	builder.WriteString(fmt.Sprintf("Auto-analysis: %s (debounce %s)\n", auto, h.Registry.DebounceInterval()))
	builder.WriteString(fmt.Sprintf("Uptime: %s\n", formatDuration(now.Sub(h.StartTime))))
	builder.WriteString(fmt.Sprintf("Memory usage: %s\n", formatFileSize(int64(memStats.Alloc))))
	builder.WriteString(fmt.Sprintf("Watched directories: %d\n", len(schedulers)))
	if h.Index != nil {
		builder.WriteString(fmt.Sprintf("Indexed files: %d\n", h.Index.DocumentCount()))
	}

	for _, scheduler := range schedulers {
		builder.WriteString("\n")
		builder.WriteString(FormatStatus(scheduler.Status(), now))
	}

	return textResult(builder.String()), nil, nil
}
