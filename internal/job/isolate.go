package job

import (
	"time"

	"github.com/fleetkit/orchestrator/internal/registry"
	"github.com/fleetkit/orchestrator/internal/wire"
)

// DefaultIsolateTimeout is the per-node call deadline for an IsolateAll
// fan-out when the caller doesn't override it.
const DefaultIsolateTimeout = 30 * time.Second

// PeerInterface names the shared peer interface used both for a node's
// incoming Register call and for the orchestrator's outgoing Isolate
// call.
const (
	PeerInterface = "org.fleetkit.Orchestrator.Peer"
)

// IsolateAllState is the IsolateAll variant's opaque extra state.
type IsolateAllState struct {
	// Target is the argument passed to every node's Isolate call.
	Target string

	outstanding int
	anyFailure  bool
}

// AnyFailure reports whether any node's Isolate call returned a
// non-nil error, including a timeout. It exists for observability only:
// the outstanding counter keeps decrementing unconditionally on both
// success and failure, and a future job type can read this field to
// report a non-Done result without changing that counter semantics.
func (s *IsolateAllState) AnyFailure() bool { return s.anyFailure }

// NewIsolateAll builds the Behaviors for one IsolateAll job. snapshot is
// called exactly once, at Start, to obtain the fleet's current node
// list. Nodes that connect after Start runs are not part of this job's
// fan-out, and nodes that disconnect during the fan-out are handled by
// their outstanding call's timeout. A timeout of 0 selects
// DefaultIsolateTimeout.
func NewIsolateAll(target string, snapshot func() []*registry.Node, timeout time.Duration) (Behaviors, *IsolateAllState) {
	if timeout == 0 {
		timeout = DefaultIsolateTimeout
	}
	state := &IsolateAllState{Target: target}

	behaviors := Behaviors{
		Start: func(j *Job) {
			j.Extra = state
			nodes := snapshot()

			// issuing stays true for the whole loop below, so a done
			// callback invoked synchronously (mid-loop, before every node
			// has had its call issued) cannot finish the job on the
			// strength of a mid-loop outstanding count of 0. Only the
			// check after the loop, once every call has actually been
			// issued, is allowed to finish it. The real wire.Peer.Go
			// never calls done synchronously, but nothing in the
			// PeerTransport contract forbids it, and this keeps a single
			// Finish call true either way.
			issuing := true
			maybeFinish := func() {
				if issuing || state.outstanding != 0 {
					return
				}
				j.Finish(ResultDone)
			}

			for _, n := range nodes {
				n.Retain()
				state.outstanding++
				node := n
				node.Transport.Go(node.ObjectPath, PeerInterface, "Isolate", timeout, func(reply wire.Reply) {
					node.Release()
					if reply.Err != nil {
						state.anyFailure = true
					}
					state.outstanding--
					maybeFinish()
				}, target)
			}
			issuing = false
			maybeFinish()
		},
		Cancel: func(j *Job) {
			// No-op in this version: outstanding calls are not tracked
			// individually enough to abort them, only counted.
		},
		Destroy: func(j *Job) {
			j.Extra = nil
		},
	}
	return behaviors, state
}
