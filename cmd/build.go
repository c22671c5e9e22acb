package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aMonteSl/codexr-mcp/analyzer"
	"github.com/aMonteSl/codexr-mcp/config"
	"github.com/aMonteSl/codexr-mcp/engine"
	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/aMonteSl/codexr-mcp/scanner"
	"github.com/aMonteSl/codexr-mcp/store"
	"github.com/aMonteSl/codexr-mcp/watcher"
)

func newEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	var an analyzer.Analyzer = analyzer.NewBuiltin()
	if len(cfg.Analysis.Command) > 0 {
		command, err := analyzer.NewCommand(cfg.Analysis.Command, cfg.Analysis.RateLimit, logger)
		if err != nil {
			return nil, fmt.Errorf("configuring analyzer: %w", err)
		}
		an = command
	}
	an = analyzer.WithTimeout(an, cfg.Analysis.Timeout)

	return engine.New(scanner.New(logger, 0), an, logger, cfg.EngineOptions()), nil
}

// openStore returns nil when persistence is off.
func openStore(cfg *config.Config, logger *slog.Logger) (*store.Store, error) {
	if !cfg.State.Persist {
		return nil, nil
	}
	dir := cfg.State.Dir
	if dir == "" {
		var err error
		if dir, err = store.DefaultDir(); err != nil {
			return nil, err
		}
	}
	return store.New(dir, logger), nil
}

// loadPrevious returns the persisted result for root, or nil.
func loadPrevious(st *store.Store, root string, logger *slog.Logger) *model.DirectoryAnalysisResult {
	if st == nil {
		return nil
	}
	previous, err := st.Load(root)
	if err != nil {
		logger.Warn("failed to load persisted result", "root", root, "error", err)
		return nil
	}
	return previous
}

// persistCycles saves every result that changed.
func persistCycles(st *store.Store, logger *slog.Logger) func(watcher.CycleEvent) {
	return func(event watcher.CycleEvent) {
		if event.Err != nil || !event.HasChanges || event.Result == nil {
			return
		}
		if err := st.Save(event.Result); err != nil {
			logger.Warn("failed to persist result", "root", event.Root, "error", err)
		}
	}
}

// resolveRoots turns command arguments into absolute directory paths with
// symlinks resolved, defaulting to the working directory.
func resolveRoots(args []string) ([]string, error) {
	if len(args) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		args = []string{cwd}
	}

	roots := make([]string, 0, len(args))
	for _, arg := range args {
		absRoot, err := scanner.ResolveRoot(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(absRoot)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%w: %s", scanner.ErrNotDirectory, absRoot)
		}
		roots = append(roots, absRoot)
	}
	return roots, nil
}

// watchRoots registers every root, seeded with its persisted result, and
// starts the first cycle of each.
func watchRoots(registry *watcher.Registry, roots []string, cfg *config.Config, st *store.Store, logger *slog.Logger) error {
	for _, root := range roots {
		previous := loadPrevious(st, root, logger)
		scheduler, err := registry.Watch(root, cfg.Filters(), previous)
		if err != nil {
			return err
		}
		logger.Info("starting initial analysis", "root", root, "resumed", previous != nil)
		scheduler.Trigger()
	}
	return nil
}

func newRegistry(eng *engine.Engine, cfg *config.Config, logger *slog.Logger) *watcher.Registry {
	return watcher.NewRegistry(eng, watcher.RegistryOptions{
		Debounce:       cfg.Watch.Debounce,
		ResyncInterval: cfg.Watch.ResyncInterval,
		Enabled:        cfg.Watch.Enabled,
		Notifications:  true,
	}, logger)
}
