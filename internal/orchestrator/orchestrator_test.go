package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetkit/orchestrator/internal/job"
	"github.com/fleetkit/orchestrator/internal/reactor"
	"github.com/fleetkit/orchestrator/internal/registry"
	"github.com/fleetkit/orchestrator/internal/wire"
)

// fakeBus is a busConn double that records every call instead of
// talking to a real message bus.
type fakeBus struct {
	mu       sync.Mutex
	exported []exportCall
	emitted  []emitCall
	closed   bool
}

type exportCall struct {
	path  dbus.ObjectPath
	iface string
	nil_  bool
}

type emitCall struct {
	path dbus.ObjectPath
	name string
	args []any
}

func (b *fakeBus) Export(v any, path dbus.ObjectPath, iface string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.exported = append(b.exported, exportCall{path: path, iface: iface, nil_: v == nil})
	return nil
}

func (b *fakeBus) Emit(path dbus.ObjectPath, name string, values ...any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.emitted = append(b.emitted, emitCall{path: path, name: name, args: values})
	return nil
}

func (b *fakeBus) RequestName(string, dbus.RequestNameFlags) (dbus.RequestNameReply, error) {
	return dbus.RequestNameReplyPrimaryOwner, nil
}

func (b *fakeBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type stubTransport struct {
	mu     sync.Mutex
	closed bool
}

func (s *stubTransport) Export(any, dbus.ObjectPath, string) error { return nil }
func (s *stubTransport) Go(dbus.ObjectPath, string, string, time.Duration, func(wire.Reply), ...any) {
}
func (s *stubTransport) Emit(dbus.ObjectPath, string, string, ...any) error { return nil }
func (s *stubTransport) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
func (s *stubTransport) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *reactor.Reactor, *fakeBus) {
	t.Helper()
	r := reactor.New(32)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)

	o := New(r, "org.fleetkit.Orchestrator.Test", time.Second, zerolog.Nop())
	bus := &fakeBus{}
	o.bus = bus
	return o, r, bus
}

func postAndWait[T any](r *reactor.Reactor, fn func() T) T {
	ch := make(chan T, 1)
	r.Post(func() { ch <- fn() })
	return <-ch
}

func TestHandleRegisterSucceedsThenRejectsDuplicateFromSamePeer(t *testing.T) {
	o, r, bus := newTestOrchestrator(t)
	n := &registry.Node{Transport: &stubTransport{}}
	r.Post(func() { o.registry.Add(n) })

	err := postAndWait(r, func() *dbus.Error { return o.handleRegister(n, "a") })
	require.Nil(t, err)
	assert.Equal(t, "a", n.Name)

	err = postAndWait(r, func() *dbus.Error { return o.handleRegister(n, "a") })
	require.NotNil(t, err)
	assert.Equal(t, wire.ErrNameAddressInUse, err.Name)

	bus.mu.Lock()
	defer bus.mu.Unlock()
	require.Len(t, bus.exported, 1)
	assert.Equal(t, registry.NodeObjectPathPrefix+"a", string(bus.exported[0].path))
}

func TestHandleRegisterRejectsNameHeldByAnotherNode(t *testing.T) {
	o, r, _ := newTestOrchestrator(t)
	a := &registry.Node{Transport: &stubTransport{}}
	b := &registry.Node{Transport: &stubTransport{}}
	r.Post(func() {
		o.registry.Add(a)
		o.registry.Add(b)
	})

	require.Nil(t, postAndWait(r, func() *dbus.Error { return o.handleRegister(a, "shared") }))
	err := postAndWait(r, func() *dbus.Error { return o.handleRegister(b, "shared") })
	require.NotNil(t, err)
	assert.Equal(t, wire.ErrNameAddressInUse, err.Name)
}

func TestOnNodeDisconnectedRemovesFromRegistryAndClosesTransport(t *testing.T) {
	o, r, bus := newTestOrchestrator(t)
	transport := &stubTransport{}
	n := &registry.Node{Transport: transport}
	r.Post(func() { o.registry.Add(n) })
	require.Nil(t, postAndWait(r, func() *dbus.Error { return o.handleRegister(n, "a") }))

	postAndWait(r, func() any { o.onNodeDisconnected(n); return nil })

	assert.Nil(t, postAndWait(r, func() *registry.Node { return o.registry.Find("a") }))
	assert.True(t, transport.isClosed())

	bus.mu.Lock()
	defer bus.mu.Unlock()
	require.Len(t, bus.exported, 2)
	assert.True(t, bus.exported[1].nil_, "disconnect should unexport the node's public object")
}

func TestOnNodeDisconnectedBeforeRegistrationSkipsBusUnexport(t *testing.T) {
	o, r, bus := newTestOrchestrator(t)
	transport := &stubTransport{}
	n := &registry.Node{Transport: transport}
	r.Post(func() { o.registry.Add(n) })

	postAndWait(r, func() any { o.onNodeDisconnected(n); return nil })

	assert.True(t, transport.isClosed())
	bus.mu.Lock()
	defer bus.mu.Unlock()
	assert.Empty(t, bus.exported)
}

func TestOnJobNewAndOnJobRemovedEmitSignalsInOrder(t *testing.T) {
	o, r, bus := newTestOrchestrator(t)

	removed := make(chan struct{})
	prevOnRemoved := o.jobs.OnRemoved
	o.jobs.OnRemoved = func(j *job.Job) {
		prevOnRemoved(j)
		close(removed)
	}

	r.Post(func() {
		o.jobs.Enqueue(job.TypeIsolateAll, job.Behaviors{
			Start: func(j *job.Job) { j.Finish(job.ResultDone) },
		}, jobObjectPath, nil)
	})

	select {
	case <-removed:
	case <-time.After(time.Second):
		t.Fatal("job never finished")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	require.Len(t, bus.emitted, 2)
	assert.Equal(t, orchestratorIface+".JobNew", bus.emitted[0].name)
	assert.Equal(t, orchestratorIface+".JobRemoved", bus.emitted[1].name)
	assert.Equal(t, "done", bus.emitted[1].args[2])
}

func TestStopClosesListenerlessOrchestratorImmediatelyWhenIdle(t *testing.T) {
	o, _, bus := newTestOrchestrator(t)
	select {
	case <-o.Stop():
	case <-time.After(time.Second):
		t.Fatal("Stop never completed for an idle orchestrator")
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	assert.True(t, bus.closed)
}

func TestStopWaitsForRunningJobToFinish(t *testing.T) {
	o, r, _ := newTestOrchestrator(t)

	release := make(chan struct{})
	var j *job.Job
	enqueued := make(chan struct{})
	r.Post(func() {
		j = o.jobs.Enqueue(job.TypeIsolateAll, job.Behaviors{
			Start: func(current *job.Job) {
				go func() {
					<-release
					r.Post(func() { current.Finish(job.ResultDone) })
				}()
			},
		}, jobObjectPath, nil)
		close(enqueued)
	})
	<-enqueued

	stopped := o.Stop()
	select {
	case <-stopped:
		t.Fatal("Stop completed before the running job finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop never completed after the running job finished")
	}
	assert.Equal(t, job.StateFinished, j.State())
}
