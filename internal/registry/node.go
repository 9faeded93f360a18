package registry

import (
	"sync/atomic"

	"github.com/godbus/dbus/v5"

	"github.com/fleetkit/orchestrator/internal/wire"
)

// NodeObjectPathPrefix is the parent under which every registered
// node's object is published on the public bus.
const NodeObjectPathPrefix = "/org/fleetkit/Orchestrator/nodes/"

// Node represents one connected agent.
type Node struct {
	// Transport is the peer connection this node was accepted on.
	// Never nil.
	Transport wire.PeerTransport

	// Name is set exactly once, by a successful Register call. Empty
	// until then.
	Name string

	// ObjectPath is derived from Name the moment Register succeeds; it
	// is the empty path before that.
	ObjectPath dbus.ObjectPath

	// ServerID is a random identifier assigned on accept, used to
	// correlate log lines for one connection across its lifetime. The
	// handshake stub's Hello reply is always the constant ":1.0"; this
	// is a separate, purely internal label.
	ServerID string

	refs int32
}

// Retain increments the liveness counter. Called when a job snapshots
// the node list at start time.
func (n *Node) Retain() { atomic.AddInt32(&n.refs, 1) }

// Release decrements the liveness counter. Called when the reply (or
// timeout) for a job's call to this node is delivered.
func (n *Node) Release() { atomic.AddInt32(&n.refs, -1) }

// RefCount reports the current liveness counter value.
func (n *Node) RefCount() int32 { return atomic.LoadInt32(&n.refs) }

// Registered reports whether Register has already succeeded for this
// node.
func (n *Node) Registered() bool { return n.Name != "" }
