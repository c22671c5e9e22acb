package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aMonteSl/codexr-mcp/watcher"
)

// DefaultWaitTimeout bounds how long codexr_reanalyze waits for a cycle.
const DefaultWaitTimeout = 2 * time.Minute

// ReanalyzeArgs defines the input parameters for the codexr_reanalyze tool.
type ReanalyzeArgs struct {
	Root string `json:"root,omitempty" jsonschema:"Watched directory to re-analyze (default: all watched directories)"`
	Wait bool   `json:"wait,omitempty" jsonschema:"If true wait for the cycle to finish and report its outcome (single root only)"`
}

// ReanalyzeHandler holds the dependencies for the reanalyze tool.
type ReanalyzeHandler struct {
	Registry    *watcher.Registry
	WaitTimeout time.Duration
	Logger      *slog.Logger
}

// Handle processes a codexr_reanalyze request. Manual requests run even while
// auto-analysis is disabled.
func (h *ReanalyzeHandler) Handle(ctx context.Context, req *mcp.CallToolRequest, args ReanalyzeArgs) (*mcp.CallToolResult, any, error) {
	if args.Root == "" && !args.Wait {
		roots := h.Registry.Roots()
		if len(roots) == 0 {
			return errorResult("Error: no directories are being watched"), nil, nil
		}
		h.Registry.TriggerAll()
		h.Logger.Info("codexr_reanalyze", "roots", len(roots))
		return textResult(fmt.Sprintf("Re-analysis scheduled for %d directories:\n  %s", len(roots), strings.Join(roots, "\n  "))), nil, nil
	}

	scheduler, err := resolveScheduler(h.Registry, args.Root)
	if err != nil {
		return errorResult("Error: %v", err), nil, nil
	}

	if !args.Wait {
		scheduler.Trigger()
		h.Logger.Info("codexr_reanalyze", "root", scheduler.Root())
		return textResult("Re-analysis scheduled for " + scheduler.Root() + "."), nil, nil
	}

	event, err := h.triggerAndWait(ctx, scheduler)
	if err != nil {
		h.Logger.Warn("codexr_reanalyze wait failed", "root", scheduler.Root(), "error", err)
		return errorResult("Re-analysis of %s did not finish: %v", scheduler.Root(), err), nil, nil
	}
	if event.Err != nil {
		return errorResult("Re-analysis of %s failed: %v", scheduler.Root(), event.Err), nil, nil
	}

	h.Logger.Info("codexr_reanalyze complete",
		"root", scheduler.Root(),
		"changed", event.HasChanges,
		"elapsed", event.Duration,
	)

	var builder strings.Builder
	if event.HasChanges {
		builder.WriteString(fmt.Sprintf("Re-analyzed %s in %s.\n", scheduler.Root(), event.Duration.Round(time.Millisecond)))
	} else {
		builder.WriteString(fmt.Sprintf("No changes in %s.\n", scheduler.Root()))
	}
	builder.WriteString(FormatSummary(event.Result))
	return textResult(builder.String()), nil, nil
}

// errCycleCancelled is reported when the cycle serving a wait is cancelled.
var errCycleCancelled = errors.New("analysis cycle was cancelled")

// triggerAndWait requests a cycle and waits for it to finish. A cycle already
// running when the request is made finishes first; the deferred one is the
// cycle waited for.
func (h *ReanalyzeHandler) triggerAndWait(ctx context.Context, scheduler *watcher.Scheduler) (watcher.CycleEvent, error) {
	if err := ctx.Err(); err != nil {
		return watcher.CycleEvent{}, err
	}
	timeout := h.WaitTimeout
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case event, ok := <-scheduler.TriggerWait():
		if !ok {
			return watcher.CycleEvent{}, errCycleCancelled
		}
		return event, nil
	case <-ctx.Done():
		return watcher.CycleEvent{}, ctx.Err()
	}
}
