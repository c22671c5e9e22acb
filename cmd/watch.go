package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aMonteSl/codexr-mcp/watcher"
)

func newWatchCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [roots...]",
		Short: "Watch roots in the foreground and print every analysis cycle",
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
			eng, err := newEngine(cfg, logger)
			if err != nil {
				return err
			}
			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}

			registry := newRegistry(eng, cfg, logger)
			defer registry.Close()

			registry.Subscribe(printCycles(cmd.OutOrStdout()))
			if st != nil {
				registry.Subscribe(persistCycles(st, logger))
			}
			if err := watchRoots(registry, roots, cfg, st, logger); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			logger.Info("stopping watch")
			return nil
		},
	}
}

// printCycles writes one line per finished cycle.
func printCycles(w io.Writer) func(watcher.CycleEvent) {
	var mu sync.Mutex
	return func(event watcher.CycleEvent) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, formatCycleLine(event, time.Now()))
	}
}

func formatCycleLine(event watcher.CycleEvent, now time.Time) string {
	prefix := fmt.Sprintf("[%s] %s:", now.Format("15:04:05"), event.Root)
	duration := event.Duration.Round(time.Millisecond)
	switch {
	case event.Err != nil:
		return fmt.Sprintf("%s analysis failed after %s: %v", prefix, duration, event.Err)
	case !event.HasChanges:
		return fmt.Sprintf("%s no changes (%s)", prefix, duration)
	}

	summary := event.Result.Summary
	kind := "full analysis"
	if event.Incremental && event.Changes != nil {
		kind = "incremental analysis " + event.Changes.String()
	}
	return fmt.Sprintf("%s %s, %d files, avg complexity %.2f, max %d (%s)",
		prefix, kind, summary.TotalFiles, summary.AverageComplexity, summary.MaxComplexity, duration)
}
