// Package cmd implements the codexr command line.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aMonteSl/codexr-mcp/config"
	"github.com/aMonteSl/codexr-mcp/server"
)

// rootOptions holds the flags shared by every subcommand that are not
// configuration keys themselves.
type rootOptions struct {
	configFile string
}

// NewRootCommand builds the codexr command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "codexr",
		Short: "Incremental code metrics for watched directories",
		Long: `codexr scans directories for source files, analyzes their metrics and keeps
the results current as files change. Only files whose content changed are
re-analyzed; everything else is carried over from the previous result.`,
		Version:       server.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaults := config.Default()
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "config file (default: ./codexr.yaml if present)")
	flags.String("log-level", defaults.Log.Level, "log level: debug|info|warn|error")
	flags.String("log-file", defaults.Log.File, "log file path (default: stderr)")

	flags.String("mode", defaults.Scan.Mode, "scan mode: shallow (immediate children) or deep")
	flags.Int("max-depth", defaults.Scan.MaxDepth, "maximum directory depth for deep scans (0 = unbounded)")
	flags.StringSlice("exclude", nil, "extra exclude glob pattern (repeatable)")
	flags.Int64("max-file-size", defaults.Scan.MaxFileSize, "skip files larger than this many bytes")
	flags.Bool("gitignore", defaults.Scan.Gitignore, "honor .gitignore in the root")

	flags.Bool("auto", defaults.Watch.Enabled, "re-analyze automatically on file changes")
	flags.Duration("debounce", defaults.Watch.Debounce, "quiet period before a re-analysis starts")
	flags.Duration("resync-interval", defaults.Watch.ResyncInterval, "periodic re-analysis interval (0 = off)")

	flags.Int("concurrency", defaults.Analysis.Concurrency, "files analyzed in parallel")
	flags.StringSlice("analyzer", nil, "external analyzer command and arguments; {file} is replaced by the path")
	flags.String("failure-policy", defaults.Analysis.FailurePolicy, "on analysis failure: omit or keep-previous")
	flags.Float64("rate-limit", defaults.Analysis.RateLimit, "external analyzer launches per second (0 = unlimited)")
	flags.Duration("timeout", defaults.Analysis.Timeout, "per-file analysis timeout (0 = none)")

	flags.String("state-dir", defaults.State.Dir, "directory for persisted results (default: user cache dir)")
	flags.Bool("persist", defaults.State.Persist, "persist results between runs")

	rootCmd.AddCommand(
		newServeCommand(opts),
		newAnalyzeCommand(opts),
		newWatchCommand(opts),
		newRegisterCommand(),
	)
	return rootCmd
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig resolves settings for cmd and sets up the logger they ask for.
// The returned function closes the log file, if any.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, func(), error) {
	cfg, err := config.Load(config.LoadOptions{
		File:       o.configFile,
		SearchDirs: []string{"."},
		Flags:      cmd.Flags(),
	})
	if err != nil {
		return nil, nil, nil, err
	}
	logger, closeLog := setupLogger(cfg.Log.Level, cfg.Log.File)
	return cfg, logger, closeLog, nil
}
