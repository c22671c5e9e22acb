package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/aMonteSl/codexr-mcp/index"
	"github.com/aMonteSl/codexr-mcp/server"
	"github.com/aMonteSl/codexr-mcp/tools"
	"github.com/aMonteSl/codexr-mcp/watcher"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve [roots...]",
		Short: "Run the MCP server on stdio and keep metrics of the roots current",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, closeLog, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			defer closeLog()

			roots, err := resolveRoots(args)
			if err != nil {
				return err
			}
			startTime := time.Now()
			logger.Info("starting codexr-mcp",
				"roots", roots,
				"mode", cfg.Scan.Mode,
				"autoAnalysis", cfg.Watch.Enabled,
				"debounce", cfg.Watch.Debounce,
			)

			eng, err := newEngine(cfg, logger)
			if err != nil {
				return err
			}
			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			metricsIndex, err := index.NewMetricsIndex()
			if err != nil {
				return err
			}
			defer metricsIndex.Close()

			registry := newRegistry(eng, cfg, logger)
			defer registry.Close()

			registry.Subscribe(func(event watcher.CycleEvent) {
				if err := metricsIndex.Apply(event); err != nil {
					logger.Warn("failed to update metrics index", "root", event.Root, "error", err)
				}
			})
			if st != nil {
				registry.Subscribe(persistCycles(st, logger))
			}
			if err := watchRoots(registry, roots, cfg, st, logger); err != nil {
				return err
			}

			mcpServer := server.Setup(server.Handlers{
				Status:       &tools.StatusHandler{Registry: registry, Index: metricsIndex, StartTime: startTime, Logger: logger},
				Files:        &tools.FilesHandler{Registry: registry, Logger: logger},
				Query:        &tools.QueryHandler{Index: metricsIndex, Registry: registry, Logger: logger},
				Reanalyze:    &tools.ReanalyzeHandler{Registry: registry, Logger: logger},
				AutoAnalysis: &tools.AutoAnalysisHandler{Registry: registry, Logger: logger},
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("MCP server starting on stdio")
			if err := mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				return fmt.Errorf("MCP server: %w", err)
			}
			logger.Info("MCP server stopped")
			return nil
		},
	}
}
