package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetkit/orchestrator/internal/job"
	"github.com/fleetkit/orchestrator/internal/registry"
)

func TestFacadeIsolateAllReturnsJobPathAndQueuesAgainstRegisteredNodes(t *testing.T) {
	o, r, _ := newTestOrchestrator(t)
	f := &facade{orch: o}

	n := &registry.Node{Transport: &stubTransport{}}
	r.Post(func() { o.registry.Add(n) })
	require.Nil(t, postAndWait(r, func() any { return o.handleRegister(n, "a") }))

	path, dErr := f.IsolateAll("multi-user.target")
	require.Nil(t, dErr)
	assert.Equal(t, "/org/fleetkit/Orchestrator/jobs/1", string(path))
}

func TestFacadeListJobsReflectsQueueSnapshot(t *testing.T) {
	o, r, _ := newTestOrchestrator(t)
	f := &facade{orch: o}

	r.Post(func() {
		o.jobs.Enqueue(job.TypeIsolateAll, job.Behaviors{
			// Never calls Finish: the job stays Running so ListJobs has
			// something to observe.
			Start: func(current *job.Job) {},
		}, jobObjectPath, nil)
	})

	// Give the scheduler a turn to promote the job to Running before we
	// query it.
	time.Sleep(20 * time.Millisecond)

	paths, dErr := f.ListJobs()
	require.Nil(t, dErr)
	require.Len(t, paths, 1)
	assert.Equal(t, "/org/fleetkit/Orchestrator/jobs/1", string(paths[0]))
}

func TestFacadeListNodesReturnsOnlyRegisteredNames(t *testing.T) {
	o, r, _ := newTestOrchestrator(t)
	f := &facade{orch: o}

	pending := &registry.Node{Transport: &stubTransport{}}
	named := &registry.Node{Transport: &stubTransport{}}
	r.Post(func() {
		o.registry.Add(pending)
		o.registry.Add(named)
	})
	require.Nil(t, postAndWait(r, func() any { return o.handleRegister(named, "a") }))

	names, dErr := f.ListNodes()
	require.Nil(t, dErr)
	assert.Equal(t, []string{"a"}, names)
}
