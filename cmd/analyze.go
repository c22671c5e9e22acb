package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aMonteSl/codexr-mcp/engine"
	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/aMonteSl/codexr-mcp/tools"
)

// Output formats of the analyze command.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func newAnalyzeCommand(opts *rootOptions) *cobra.Command {
	var format string
	var full bool

	analyzeCmd := &cobra.Command{
		Use:   "analyze [root]",
		Short: "Run one analysis cycle and print the result",
		Long: `Run one analysis cycle for root (default: the working directory) and print
the result. With persistence on, the cycle resumes from the last saved result
and only re-analyzes files whose content changed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatText, formatJSON, formatYAML:
			default:
				return fmt.Errorf("unknown format %q (must be text, json or yaml)", format)
			}

			cfg, logger, closeLog, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			defer closeLog()

			roots, err := resolveRoots(args)
			if err != nil {
				return err
			}
			root := roots[0]

			eng, err := newEngine(cfg, logger)
			if err != nil {
				return err
			}
			st, err := openStore(cfg, logger)
			if err != nil {
				return err
			}
			previous := loadPrevious(st, root, logger)
			if full {
				previous = nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			outcome, err := eng.Run(ctx, root, cfg.Filters(), previous)
			if err != nil {
				return err
			}
			if st != nil && outcome.HasChanges() {
				if err := st.Save(outcome.Result); err != nil {
					logger.Warn("failed to persist result", "root", root, "error", err)
				}
			}

			return writeOutcome(cmd.OutOrStdout(), format, outcome)
		},
	}

	analyzeCmd.Flags().StringVarP(&format, "format", "f", formatText, "output format: text, json or yaml")
	analyzeCmd.Flags().BoolVar(&full, "full", false, "ignore the persisted result and analyze every file")
	return analyzeCmd
}

func writeOutcome(w io.Writer, format string, outcome *engine.Outcome) error {
	switch format {
	case formatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(outcome.Result)
	case formatYAML:
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(outcome.Result); err != nil {
			return err
		}
		return encoder.Close()
	default:
		_, err := io.WriteString(w, formatOutcomeText(outcome))
		return err
	}
}

func formatOutcomeText(outcome *engine.Outcome) string {
	result := outcome.Result
	header := fmt.Sprintf("%s\n", result.DirectoryPath)
	switch {
	case outcome.Reused:
		header += "No changes since the last analysis.\n"
	case outcome.Changes != nil:
		header += fmt.Sprintf("Changes: %s\n", outcome.Changes.String())
	}
	return header + tools.FormatSummary(result) + formatTopFiles(result, 5)
}

// formatTopFiles lists the n most complex files.
func formatTopFiles(result *model.DirectoryAnalysisResult, n int) string {
	if len(result.Files) == 0 {
		return ""
	}
	files := append([]model.FileMetrics(nil), result.Files...)
	sortByComplexity(files)
	if len(files) > n {
		files = files[:n]
	}

	var builder strings.Builder
	builder.WriteString("Most complex files:\n")
	for _, f := range files {
		builder.WriteString(fmt.Sprintf("  %-40s %6.2f avg, %3d max\n", f.RelativePath, f.AverageComplexity, f.MaxComplexity))
	}
	return builder.String()
}

func sortByComplexity(files []model.FileMetrics) {
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].AverageComplexity != files[j].AverageComplexity {
			return files[i].AverageComplexity > files[j].AverageComplexity
		}
		return files[i].RelativePath < files[j].RelativePath
	})
}
