package job

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"golang.org/x/exp/slices"

	"github.com/fleetkit/orchestrator/internal/reactor"
)

// Queue is a FIFO, single-flight job queue. It is not safe for
// concurrent use; every method must be called from the reactor
// goroutine (see package reactor).
type Queue struct {
	reactor *reactor.Reactor

	// OnNew is invoked synchronously inside Enqueue, right after the job
	// is constructed and appended, before the scheduler is asked to run.
	// The orchestrator facade uses this to publish the job's object and
	// emit JobNew.
	OnNew func(j *Job)

	// OnRemoved is invoked from the finisher deferral, after the job's
	// state has transitioned to Finished and before it is dropped from
	// the queue. The orchestrator facade uses this to emit JobRemoved.
	OnRemoved func(j *Job)

	items            []*Job
	current          *Job
	schedulerPending bool
	nextID           uint32
}

// New returns an empty Queue driven by r.
func New(r *reactor.Reactor) *Queue {
	return &Queue{reactor: r}
}

// Enqueue allocates the next id, constructs the job record, appends it,
// fires OnNew, and asks the scheduler to run.
func (q *Queue) Enqueue(typ Type, behaviors Behaviors, pathFor func(id uint32) dbus.ObjectPath, sourceMessage any) *Job {
	q.nextID++
	id := q.nextID
	j := &Job{
		ID:            id,
		Type:          typ,
		ObjectPath:    pathFor(id),
		SourceMessage: sourceMessage,
		state:         StateWaiting,
		behaviors:     behaviors,
	}
	j.finish = func(result Result) { q.finish(j, result) }

	q.items = append(q.items, j)
	if q.OnNew != nil {
		q.OnNew(j)
	}
	q.scheduleNext()
	return j
}

// scheduleNext defers a promotion exactly when nothing is Running,
// nothing is already deferred, and the queue is non-empty.
func (q *Queue) scheduleNext() {
	if q.current != nil || q.schedulerPending || len(q.items) == 0 {
		return
	}
	q.schedulerPending = true
	q.reactor.Defer(q.runScheduled)
}

func (q *Queue) runScheduled() {
	q.schedulerPending = false
	if q.current != nil || len(q.items) == 0 {
		// A finish and re-schedule already ran between this deferral
		// being posted and firing; nothing to promote.
		return
	}
	j := q.items[0]
	q.current = j
	j.setState(StateRunning)
	if j.behaviors.Start != nil {
		j.behaviors.Start(j)
	}
}

// finish asserts the two invariants that keep every state transition at
// reactor top-level, then defers the actual teardown.
func (q *Queue) finish(j *Job, result Result) {
	if q.current != j {
		panic(fmt.Sprintf("job: finish_job(%d) called but current job is %v", j.ID, currentID(q.current)))
	}
	if q.schedulerPending {
		panic(fmt.Sprintf("job: finish_job(%d) called while a scheduler deferral is already pending", j.ID))
	}
	q.reactor.Defer(func() {
		q.current = nil
		j.result = result
		j.setState(StateFinished)
		if q.OnRemoved != nil {
			q.OnRemoved(j)
		}
		q.removeItem(j)
		if j.behaviors.Destroy != nil {
			j.behaviors.Destroy(j)
		}
		q.scheduleNext()
	})
}

func currentID(j *Job) any {
	if j == nil {
		return "<none>"
	}
	return j.ID
}

func (q *Queue) removeItem(j *Job) {
	idx := slices.IndexFunc(q.items, func(x *Job) bool { return x == j })
	if idx >= 0 {
		q.items = append(q.items[:idx], q.items[idx+1:]...)
	}
}

// Snapshot returns the queued jobs (Waiting and Running) in FIFO order.
func (q *Queue) Snapshot() []*Job {
	out := make([]*Job, len(q.items))
	copy(out, q.items)
	return out
}

// Current returns the currently Running job, or nil if none.
func (q *Queue) Current() *Job {
	return q.current
}
