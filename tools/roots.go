package tools

import (
	"fmt"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aMonteSl/codexr-mcp/watcher"
)

// resolveScheduler finds the scheduler a tool call refers to. An empty root is
// accepted only while exactly one root is watched.
func resolveScheduler(registry *watcher.Registry, root string) (*watcher.Scheduler, error) {
	if root == "" {
		schedulers := registry.Schedulers()
		switch len(schedulers) {
		case 0:
			return nil, fmt.Errorf("no directories are being watched")
		case 1:
			return schedulers[0], nil
		default:
			return nil, fmt.Errorf("root parameter is required when %d directories are watched", len(schedulers))
		}
	}

	scheduler, ok := registry.Get(root)
	if !ok {
		absRoot, _ := filepath.Abs(root)
		return nil, fmt.Errorf("directory %s is not watched", absRoot)
	}
	return scheduler, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
