package job

import (
	"context"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetkit/orchestrator/internal/reactor"
)

func newTestQueue(t *testing.T) (*Queue, *reactor.Reactor, context.CancelFunc) {
	t.Helper()
	r := reactor.New(32)
	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	return New(r), r, cancel
}

func pathFor(prefix string) func(uint32) dbus.ObjectPath {
	return func(id uint32) dbus.ObjectPath {
		return dbus.ObjectPath(prefix)
	}
}

func TestQueueSingleFlightAndFIFO(t *testing.T) {
	q, r, cancel := newTestQueue(t)
	defer cancel()

	var started []uint32
	var newIDs []uint32
	q.OnNew = func(j *Job) { newIDs = append(newIDs, j.ID) }

	behave := func(order *[]uint32) Behaviors {
		return Behaviors{
			Start: func(j *Job) {
				*order = append(*order, j.ID)
				j.Finish(ResultDone)
			},
		}
	}

	done := make(chan struct{}, 2)
	q.OnRemoved = func(j *Job) { done <- struct{}{} }

	r.Post(func() {
		q.Enqueue(TypeIsolateAll, behave(&started), pathFor("/jobs/1"), nil)
		q.Enqueue(TypeIsolateAll, behave(&started), pathFor("/jobs/2"), nil)
	})

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("jobs did not finish in time")
		}
	}

	assert.Equal(t, []uint32{1, 2}, newIDs)
	assert.Equal(t, []uint32{1, 2}, started)
}

func TestQueueEmptyFleetFinishesSynchronouslyWithinOneTurn(t *testing.T) {
	q, r, cancel := newTestQueue(t)
	defer cancel()

	var gotResult Result
	removed := make(chan struct{})
	q.OnRemoved = func(j *Job) {
		gotResult = j.Result()
		close(removed)
	}

	r.Post(func() {
		q.Enqueue(TypeIsolateAll, Behaviors{
			Start: func(j *Job) { j.Finish(ResultDone) },
		}, pathFor("/jobs/1"), nil)
	})

	select {
	case <-removed:
	case <-time.After(time.Second):
		t.Fatal("job never finished")
	}
	assert.Equal(t, ResultDone, gotResult)
}

func TestFinishPanicsIfJobIsNotCurrent(t *testing.T) {
	q, r, cancel := newTestQueue(t)
	defer cancel()

	var capturedJob *Job
	captured := make(chan struct{})
	q.OnNew = func(j *Job) {
		capturedJob = j
		close(captured)
	}

	r.Post(func() {
		q.Enqueue(TypeIsolateAll, Behaviors{Start: func(j *Job) {
			// leave running, never finishes
		}}, pathFor("/jobs/1"), nil)
	})

	select {
	case <-captured:
	case <-time.After(time.Second):
		t.Fatal("job never queued")
	}

	panicked := make(chan any, 1)
	r.Post(func() {
		defer func() { panicked <- recover() }()
		// This job was never enqueued, so whether or not the queued job
		// has been promoted yet in this race, it is never `current`,
		// and Finish must panic.
		j2 := &Job{ID: 999}
		j2.finish = func(result Result) { q.finish(j2, result) }
		j2.Finish(ResultDone)
	})

	select {
	case p := <-panicked:
		require.NotNil(t, p)
	case <-time.After(time.Second):
		t.Fatal("expected panic did not happen")
	}
	_ = capturedJob
}

func TestStateTransitionsEmitExactlyOncePerRealChange(t *testing.T) {
	q, r, cancel := newTestQueue(t)
	defer cancel()

	var transitions []State
	newCh := make(chan *Job, 1)
	q.OnNew = func(j *Job) {
		j.OnStateChange = func(s State) { transitions = append(transitions, s) }
		newCh <- j
	}
	removed := make(chan struct{})
	q.OnRemoved = func(j *Job) { close(removed) }

	r.Post(func() {
		q.Enqueue(TypeIsolateAll, Behaviors{
			Start: func(j *Job) { j.Finish(ResultDone) },
		}, pathFor("/jobs/1"), nil)
	})

	<-newCh
	select {
	case <-removed:
	case <-time.After(time.Second):
		t.Fatal("job never finished")
	}

	assert.Equal(t, []State{StateRunning, StateFinished}, transitions)
}
