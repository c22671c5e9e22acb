package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aMonteSl/codexr-mcp/changes"
	"github.com/aMonteSl/codexr-mcp/engine"
	"github.com/aMonteSl/codexr-mcp/model"
)

// Runner executes one analysis cycle. *engine.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, root string, filters model.Filters, previous *model.DirectoryAnalysisResult) (*engine.Outcome, error)
}

// State is the scheduling state of a root.
type State string

const (
	StateIdle    State = "idle"
	StatePending State = "pending"
	StateRunning State = "running"
)

// CycleEvent is delivered to subscribers after every finished cycle, including
// cycles that found nothing to do. A failed cycle carries Err and the result
// the scheduler still considers current.
type CycleEvent struct {
	Root        string
	Result      *model.DirectoryAnalysisResult
	Changes     *changes.ChangeSet // nil on an initial run
	HasChanges  bool
	Incremental bool
	Err         error
	Duration    time.Duration
}

// Status is a point-in-time view of a scheduler.
type Status struct {
	Root             string
	State            State
	Enabled          bool
	Deadline         time.Time // zero unless State is pending
	DebounceInterval time.Duration
	RerunQueued      bool
	Cycles           int
	LastRunAt        time.Time
	LastError        string
	LastResult       *model.DirectoryAnalysisResult
}

// SchedulerOptions configures a Scheduler.
type SchedulerOptions struct {
	Root     string
	Filters  model.Filters
	Debounce time.Duration
	// ResyncInterval > 0 starts a cycle periodically as a safety net for missed
	// notifications. Cycles with no changes are cheap.
	ResyncInterval time.Duration
	// Enabled is the shared auto-analysis toggle. Nil means always enabled.
	Enabled *atomic.Bool
	// Previous seeds lastResult, e.g. from persisted state.
	Previous *model.DirectoryAnalysisResult
}

// Scheduler owns the watch state of one root. Notifications are debounced into
// a single cycle and at most one cycle runs at a time; a cycle requested while
// another is running is deferred until it completes.
type Scheduler struct {
	root      string
	filters   model.Filters
	runner    Runner
	logger    *slog.Logger
	enabled   *atomic.Bool
	debouncer *Debouncer

	mu          sync.Mutex
	lastResult  *model.DirectoryAnalysisResult
	inFlight    bool
	rerun       bool
	rerunManual bool
	// waiters are served by the running cycle, rerunWaiters by the deferred one.
	waiters      []chan CycleEvent
	rerunWaiters []chan CycleEvent
	cancel      context.CancelFunc
	closed      bool
	cycles      int
	lastRunAt   time.Time
	lastErr     error
	subscribers map[int]func(CycleEvent)
	nextID      int

	stopResync chan struct{}
	running    sync.WaitGroup
}

// NewScheduler creates a scheduler for one root. Close releases it.
func NewScheduler(runner Runner, options SchedulerOptions, logger *slog.Logger) *Scheduler {
	enabled := options.Enabled
	if enabled == nil {
		enabled = &atomic.Bool{}
		enabled.Store(true)
	}
	s := &Scheduler{
		root:        options.Root,
		filters:     options.Filters,
		runner:      runner,
		logger:      logger.With("root", options.Root),
		enabled:     enabled,
		lastResult:  options.Previous,
		subscribers: make(map[int]func(CycleEvent)),
		stopResync:  make(chan struct{}),
	}
	s.debouncer = NewDebouncer(options.Debounce, s.onElapsed)
	if options.ResyncInterval > 0 {
		go s.runPeriodicResync(options.ResyncInterval)
	}
	return s
}

// Root returns the watched root.
func (s *Scheduler) Root() string {
	return s.root
}

// Filters returns the scan filters used for every cycle.
func (s *Scheduler) Filters() model.Filters {
	return s.filters
}

// Notify records a file system event under the root and restarts the debounce
// countdown. It does nothing while auto-analysis is disabled.
func (s *Scheduler) Notify(path string, op EventOp) {
	if !s.enabled.Load() {
		return
	}
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.debouncer.Add(path, op)
}

// onElapsed runs when the debounce countdown finishes.
func (s *Scheduler) onElapsed(batch []DebouncedEvent) {
	if !s.enabled.Load() {
		s.logger.Debug("auto-analysis disabled, dropping debounced events", "events", len(batch))
		return
	}
	s.logger.Debug("debounce elapsed", "events", len(batch))
	s.start(false)
}

// Trigger requests a cycle now, bypassing the debounce. It works even while
// auto-analysis is disabled. If a cycle is running, the request is deferred.
func (s *Scheduler) Trigger() {
	s.start(true)
}

// TriggerWait requests a cycle like Trigger and returns a channel that
// receives the event of the cycle serving the request: the one it starts, or
// the deferred one when a cycle is already running. The channel is closed
// without a value if that cycle is cancelled or the scheduler is closed.
func (s *Scheduler) TriggerWait() <-chan CycleEvent {
	waiter := make(chan CycleEvent, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked(true, waiter)
	return waiter
}

// Cancel stops the running cycle, if any, and discards a pending countdown and
// any deferred cycle. The previous result stays current.
func (s *Scheduler) Cancel() {
	s.debouncer.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rerun = false
	s.rerunManual = false
	closeWaiters(s.rerunWaiters)
	s.rerunWaiters = nil
	if s.cancel != nil {
		s.cancel()
	}
}

// SetDebounceInterval changes the quiet interval for future countdowns.
func (s *Scheduler) SetDebounceInterval(d time.Duration) {
	s.debouncer.SetInterval(d)
}

// Subscribe registers fn for every finished cycle and returns a function that
// removes it. fn runs on the cycle's goroutine; the next cycle does not start
// until all subscribers have returned.
func (s *Scheduler) Subscribe(fn func(CycleEvent)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// LastResult returns the result of the last successful cycle.
func (s *Scheduler) LastResult() *model.DirectoryAnalysisResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// Status returns the current scheduling state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	status := Status{
		Root:             s.root,
		Enabled:          s.enabled.Load(),
		DebounceInterval: s.debouncer.Interval(),
		RerunQueued:      s.rerun,
		Cycles:           s.cycles,
		LastRunAt:        s.lastRunAt,
		LastResult:       s.lastResult,
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	inFlight := s.inFlight
	s.mu.Unlock()

	deadline, pending := s.debouncer.Deadline()
	switch {
	case inFlight:
		status.State = StateRunning
	case pending:
		status.State = StatePending
	default:
		status.State = StateIdle
	}
	if pending {
		status.Deadline = deadline
	}
	return status
}

// Close cancels any running cycle, stops timers and waits for the cycle
// goroutine to exit.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.rerun = false
	closeWaiters(s.rerunWaiters)
	s.rerunWaiters = nil
	if s.cancel != nil {
		s.cancel()
	}
	close(s.stopResync)
	s.mu.Unlock()

	s.debouncer.Stop()
	s.running.Wait()
}

// start launches a cycle unless one is in flight, in which case it is deferred.
func (s *Scheduler) start(manual bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked(manual, nil)
}

// startLocked is start with s.mu held. A non-nil waiter is attached to the
// cycle that serves this request.
func (s *Scheduler) startLocked(manual bool, waiter chan CycleEvent) {
	if s.closed {
		if waiter != nil {
			close(waiter)
		}
		return
	}
	if s.inFlight {
		s.rerun = true
		s.rerunManual = s.rerunManual || manual
		if waiter != nil {
			s.rerunWaiters = append(s.rerunWaiters, waiter)
		}
		s.logger.Debug("cycle in flight, deferring")
		return
	}

	if waiter != nil {
		s.waiters = append(s.waiters, waiter)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.inFlight = true
	s.cancel = cancel
	previous := s.lastResult
	s.running.Add(1)
	go s.runCycle(ctx, cancel, previous)
}

func (s *Scheduler) runCycle(ctx context.Context, cancel context.CancelFunc, previous *model.DirectoryAnalysisResult) {
	defer s.running.Done()
	defer cancel()

	started := time.Now()
	outcome, err := s.runner.Run(ctx, s.root, s.filters, previous)
	duration := time.Since(started)

	var event *CycleEvent
	s.mu.Lock()
	s.lastRunAt = time.Now()
	switch {
	case err != nil && (errors.Is(err, context.Canceled) || ctx.Err() != nil):
		s.logger.Info("analysis cycle cancelled", "duration", duration)
	case err != nil:
		s.lastErr = err
		s.logger.Error("analysis cycle failed", "error", err)
		event = &CycleEvent{Root: s.root, Result: s.lastResult, Err: err, Duration: duration}
	default:
		s.lastResult = outcome.Result
		s.lastErr = nil
		s.cycles++
		event = &CycleEvent{
			Root:        s.root,
			Result:      outcome.Result,
			Changes:     outcome.Changes,
			HasChanges:  outcome.HasChanges(),
			Incremental: !outcome.Initial,
			Duration:    duration,
		}
	}
	subscribers := make([]func(CycleEvent), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.mu.Unlock()

	if event != nil {
		for _, fn := range subscribers {
			fn(*event)
		}
	}

	s.mu.Lock()
	waiters := s.waiters
	s.waiters = nil
	s.inFlight = false
	s.cancel = nil
	rerun := s.rerun && !s.closed && (s.rerunManual || s.enabled.Load())
	manual := s.rerunManual
	deferred := s.rerunWaiters
	s.rerun = false
	s.rerunManual = false
	s.rerunWaiters = nil
	if rerun {
		s.startLocked(manual, nil)
		s.waiters = append(s.waiters, deferred...)
	} else {
		closeWaiters(deferred)
	}
	s.mu.Unlock()

	for _, waiter := range waiters {
		if event != nil {
			waiter <- *event
		}
		close(waiter)
	}
}

func closeWaiters(waiters []chan CycleEvent) {
	for _, waiter := range waiters {
		close(waiter)
	}
}

// runPeriodicResync starts a cycle at every tick unless one is already pending
// or running. It runs until the scheduler is closed.
func (s *Scheduler) runPeriodicResync(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopResync:
			return
		case <-ticker.C:
			if !s.enabled.Load() || s.debouncer.Pending() {
				continue
			}
			s.mu.Lock()
			busy := s.inFlight
			s.mu.Unlock()
			if !busy {
				s.logger.Debug("periodic resync")
				s.start(false)
			}
		}
	}
}
