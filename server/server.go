package server

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aMonteSl/codexr-mcp/tools"
)

// Version is reported to MCP clients.
const Version = "0.3.0"

// Handlers bundles the tool handlers the server exposes.
type Handlers struct {
	Status       *tools.StatusHandler
	Files        *tools.FilesHandler
	Query        *tools.QueryHandler
	Reanalyze    *tools.ReanalyzeHandler
	AutoAnalysis *tools.AutoAnalysisHandler
}

// Setup creates and configures the MCP server with all tool registrations.
func Setup(handlers Handlers) *mcp.Server {
	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "codexr-mcp",
			Version: Version,
		},
		&mcp.ServerOptions{
			Instructions: `This server keeps code metrics (lines, functions, classes, cyclomatic complexity, comment density) for watched directories up to date. Results are recomputed incrementally: only files whose content changed are re-analyzed after each burst of file changes.

- Use codexr_status for a directory summary and whether an analysis is pending or running
- Use codexr_query to find the most complex files, optionally by language or size
- Use codexr_files to list files by glob pattern with their metrics
- Use codexr_reanalyze with wait=true before reading metrics right after editing files
- Use codexr_autoanalysis to pause or resume automatic re-analysis`,
		},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "codexr_status",
		Description: "Show analysis state per watched directory: idle/pending/running, countdown to the next analysis, last error and the metrics summary.",
	}, handlers.Status.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name: "codexr_files",
		Description: `List analyzed files matching a glob pattern, with their metrics.

Pattern examples:
  - "**/*.go" - all Go files
  - "src/**/*.ts" - TypeScript files under src/
  - "*.py" - Python files in the root only`,
	}, handlers.Files.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "codexr_query",
		Description: "Find files by metrics: filter by language, average complexity range and minimum line count. Results are sorted by complexity, highest first.",
	}, handlers.Query.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "codexr_reanalyze",
		Description: "Start an analysis now for one or all watched directories, bypassing the debounce. Works while auto-analysis is disabled. With wait=true, returns the outcome.",
	}, handlers.Reanalyze.Handle)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        "codexr_autoanalysis",
		Description: "Enable or disable automatic re-analysis on file changes and set the debounce interval.",
	}, handlers.AutoAnalysis.Handle)

	return mcpServer
}
