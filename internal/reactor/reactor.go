package reactor

import (
	"context"
	"sync/atomic"
)

// Task is a unit of work executed on the reactor goroutine. Tasks never
// block: a task that needs to wait on I/O instead arranges for a future
// task to be posted when the I/O completes.
type Task func()

// Reactor is a single-threaded cooperative event loop. All Task values
// submitted via Post or Defer run strictly one at a time, in submission
// order, on the goroutine that calls Run.
type Reactor struct {
	tasks chan Task
}

// New creates a Reactor with the given task queue depth. A depth of zero
// makes Post synchronous with a waiting Run loop, which is fine for
// tests but risks deadlock under real load; production callers should
// size the queue generously (orchestratord uses 256).
func New(queueDepth int) *Reactor {
	return &Reactor{tasks: make(chan Task, queueDepth)}
}

// Run drains the task queue until ctx is cancelled. It must be called
// from exactly one goroutine: that goroutine becomes "the reactor
// goroutine" for the lifetime of the call.
func (r *Reactor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.tasks:
			t()
		}
	}
}

// Post submits a task to run on the reactor goroutine. Safe to call from
// any goroutine, including the reactor goroutine itself (in which case
// the task runs after the caller returns, on a later turn, the same
// semantics as Defer).
func (r *Reactor) Post(t Task) {
	r.tasks <- t
}

// Defer schedules t to run exactly once, on the next reactor turn. It is
// distinct from Post only in name: both hand the task to the same
// channel. The name documents intent at call sites that specifically
// rely on "not nested inside the current callback frame": the job
// scheduler and finisher deferrals in package job.
func (r *Reactor) Defer(t Task) {
	r.Post(t)
}

// Source is a disposable background activity that feeds tasks into a
// Reactor: a peer connection reader, a listening socket, a timer. Its
// zero value is not usable; construct one with NewSource.
type Source struct {
	cancel context.CancelFunc
	closed atomic.Bool
}

// NewSource derives a cancellable context from parent and returns it
// alongside a Source that cancels that context exactly once.
func NewSource(parent context.Context) (context.Context, *Source) {
	ctx, cancel := context.WithCancel(parent)
	return ctx, &Source{cancel: cancel}
}

// Dispose cancels the source's context. Safe to call more than once and
// safe to call from inside the source's own callback. It does not wait
// for the background activity to observe cancellation, it only signals
// it.
func (s *Source) Dispose() {
	if s.closed.CompareAndSwap(false, true) {
		s.cancel()
	}
}

// Disposed reports whether Dispose has already run.
func (s *Source) Disposed() bool {
	return s.closed.Load()
}
