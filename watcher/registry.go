package watcher

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aMonteSl/codexr-mcp/ignore"
	"github.com/aMonteSl/codexr-mcp/model"
	"github.com/aMonteSl/codexr-mcp/scanner"
	"github.com/samber/lo"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Debounce       time.Duration
	ResyncInterval time.Duration
	Enabled        bool
	// Notifications attaches an fsnotify watcher to every root. Without it
	// cycles only run on Trigger or periodic resync.
	Notifications bool
}

type watchedRoot struct {
	scheduler   *Scheduler
	watcher     *Watcher
	unsubscribe func()
}

// Registry owns the schedulers of all watched roots. Roots are independent:
// each has its own scheduler and cycles of different roots may overlap.
type Registry struct {
	runner  Runner
	logger  *slog.Logger
	enabled atomic.Bool
	options RegistryOptions

	mu          sync.Mutex
	roots       map[string]*watchedRoot
	subscribers map[int]func(CycleEvent)
	nextID      int
	closed      bool
}

// NewRegistry creates an empty registry.
func NewRegistry(runner Runner, options RegistryOptions, logger *slog.Logger) *Registry {
	r := &Registry{
		runner:      runner,
		logger:      logger,
		options:     options,
		roots:       make(map[string]*watchedRoot),
		subscribers: make(map[int]func(CycleEvent)),
	}
	r.enabled.Store(options.Enabled)
	return r
}

// Watch starts scheduling root. previous seeds the first cycle so it can be
// incremental. Watching an already watched root returns its scheduler.
func (r *Registry) Watch(root string, filters model.Filters, previous *model.DirectoryAnalysisResult) (*Scheduler, error) {
	absRoot, err := scanner.ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, fmt.Errorf("registry is closed")
	}
	if existing, ok := r.roots[absRoot]; ok {
		return existing.scheduler, nil
	}

	scheduler := NewScheduler(r.runner, SchedulerOptions{
		Root:           absRoot,
		Filters:        filters,
		Debounce:       r.options.Debounce,
		ResyncInterval: r.options.ResyncInterval,
		Enabled:        &r.enabled,
		Previous:       previous,
	}, r.logger)
	entry := &watchedRoot{
		scheduler:   scheduler,
		unsubscribe: scheduler.Subscribe(r.dispatch),
	}

	if r.options.Notifications {
		matcher := ignore.NewMatcher(ignore.MatcherOptions{
			RootDir:          absRoot,
			ExcludePatterns:  filters.ExcludePatterns,
			MaxFileSizeBytes: filters.MaxFileSizeBytes,
			UseGitignore:     filters.UseGitignore,
		})
		w, err := NewWatcher(absRoot, matcher, filters.MaxDepth, scheduler.Notify, r.logger)
		if err != nil {
			scheduler.Close()
			return nil, fmt.Errorf("watching %s: %w", absRoot, err)
		}
		go w.Start()
		entry.watcher = w
	}

	r.roots[absRoot] = entry
	r.logger.Info("watching root", "root", absRoot, "maxDepth", filters.MaxDepth, "notifications", r.options.Notifications)
	return scheduler, nil
}

// Unwatch stops scheduling root and releases its watcher.
func (r *Registry) Unwatch(root string) error {
	absRoot, err := lookupKey(root)
	if err != nil {
		return err
	}

	r.mu.Lock()
	entry, ok := r.roots[absRoot]
	delete(r.roots, absRoot)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("root %s is not watched", absRoot)
	}
	return r.release(entry)
}

// Get returns the scheduler for root.
func (r *Registry) Get(root string) (*Scheduler, bool) {
	absRoot, err := lookupKey(root)
	if err != nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.roots[absRoot]
	if !ok {
		return nil, false
	}
	return entry.scheduler, true
}

// lookupKey maps root to the key Watch stored it under. A root that no longer
// exists can still be found by its absolute path.
func lookupKey(root string) (string, error) {
	if resolved, err := scanner.ResolveRoot(root); err == nil {
		return resolved, nil
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving root %s: %w", root, err)
	}
	return absRoot, nil
}

// Roots returns the watched roots, sorted.
func (r *Registry) Roots() []string {
	r.mu.Lock()
	roots := lo.Keys(r.roots)
	r.mu.Unlock()
	sort.Strings(roots)
	return roots
}

// Schedulers returns the scheduler of every watched root, sorted by root.
func (r *Registry) Schedulers() []*Scheduler {
	r.mu.Lock()
	schedulers := lo.MapToSlice(r.roots, func(_ string, entry *watchedRoot) *Scheduler { return entry.scheduler })
	r.mu.Unlock()
	sort.Slice(schedulers, func(i, j int) bool { return schedulers[i].Root() < schedulers[j].Root() })
	return schedulers
}

// SetEnabled toggles auto-analysis for every root. Events missed while
// disabled are not replayed.
func (r *Registry) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
	r.logger.Info("auto-analysis toggled", "enabled", enabled)
}

// Enabled reports whether auto-analysis is on.
func (r *Registry) Enabled() bool {
	return r.enabled.Load()
}

// SetDebounceInterval changes the debounce interval of every current and
// future root.
func (r *Registry) SetDebounceInterval(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.options.Debounce = d
	for _, entry := range r.roots {
		entry.scheduler.SetDebounceInterval(d)
	}
}

// DebounceInterval returns the interval applied to new roots.
func (r *Registry) DebounceInterval() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.options.Debounce
}

// TriggerAll requests a cycle for every watched root.
func (r *Registry) TriggerAll() {
	for _, s := range r.Schedulers() {
		s.Trigger()
	}
}

// Subscribe registers fn for cycle events of every root, current and future.
func (r *Registry) Subscribe(fn func(CycleEvent)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	r.subscribers[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subscribers, id)
	}
}

// Close stops every root. The registry cannot be reused.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	entries := lo.Values(r.roots)
	r.roots = make(map[string]*watchedRoot)
	r.mu.Unlock()

	var firstErr error
	for _, entry := range entries {
		if err := r.release(entry); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Registry) dispatch(event CycleEvent) {
	r.mu.Lock()
	subscribers := lo.Values(r.subscribers)
	r.mu.Unlock()
	for _, fn := range subscribers {
		fn(event)
	}
}

func (r *Registry) release(entry *watchedRoot) error {
	entry.unsubscribe()
	var err error
	if entry.watcher != nil {
		err = entry.watcher.Close()
	}
	entry.scheduler.Close()
	return err
}
