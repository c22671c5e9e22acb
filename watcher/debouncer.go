package watcher

import (
	"sort"
	"sync"
	"time"
)

// DebouncedEvent represents a batched file system event.
type DebouncedEvent struct {
	Path string
	Op   EventOp
}

// EventOp represents the type of file system operation.
type EventOp int

const (
	OpCreate EventOp = iota
	OpWrite
	OpRemove
	OpRename
)

func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Debouncer collects file system events and hands them over as one batch after
// a quiet period. Every Add resets the countdown: the armed timer is discarded
// and a new one created. Multiple events for the same path within the window
// are collapsed into one.
type Debouncer struct {
	mu         sync.Mutex
	interval   time.Duration
	events     map[string]DebouncedEvent
	timer      *time.Timer
	deadline   time.Time
	generation uint64
	onFlush    func([]DebouncedEvent)
}

// NewDebouncer creates a debouncer with the specified quiet interval.
// onFlush runs on its own goroutine, outside the debouncer's lock.
func NewDebouncer(interval time.Duration, onFlush func([]DebouncedEvent)) *Debouncer {
	return &Debouncer{
		interval: interval,
		events:   make(map[string]DebouncedEvent),
		onFlush:  onFlush,
	}
}

// Add adds an event to the debounce window and restarts the countdown. If an
// event for the same path already exists, it is replaced with the latest operation.
func (d *Debouncer) Add(path string, op EventOp) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.events[path] = DebouncedEvent{Path: path, Op: op}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	gen := d.generation
	d.deadline = time.Now().Add(d.interval)
	d.timer = time.AfterFunc(d.interval, func() { d.flush(gen) })
}

// SetInterval changes the quiet interval. An already armed timer keeps its
// deadline until the next Add.
func (d *Debouncer) SetInterval(interval time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.interval = interval
}

// Interval returns the current quiet interval.
func (d *Debouncer) Interval() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.interval
}

// Stop discards the armed timer and any collected events.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.generation++
	d.deadline = time.Time{}
	d.events = make(map[string]DebouncedEvent)
}

// Pending reports whether a timer is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Deadline returns when the armed timer fires.
func (d *Debouncer) Deadline() (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return time.Time{}, false
	}
	return d.deadline, true
}

// flush hands the accumulated events to onFlush. A timer that was replaced or
// stopped after it started firing carries an old generation and does nothing.
func (d *Debouncer) flush(gen uint64) {
	d.mu.Lock()
	if gen != d.generation || len(d.events) == 0 {
		d.mu.Unlock()
		return
	}

	batch := make([]DebouncedEvent, 0, len(d.events))
	for _, event := range d.events {
		batch = append(batch, event)
	}
	sort.Slice(batch, func(i, j int) bool {
		return batch[i].Path < batch[j].Path
	})

	d.events = make(map[string]DebouncedEvent)
	d.timer = nil
	d.deadline = time.Time{}
	d.mu.Unlock()

	d.onFlush(batch)
}
