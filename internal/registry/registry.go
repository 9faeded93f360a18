package registry

import (
	"errors"

	"github.com/godbus/dbus/v5"
	"golang.org/x/exp/slices"
)

// ErrAddressInUse is returned by Register when the node already has a
// name, or when another registered node already holds the requested
// name.
var ErrAddressInUse = errors.New("address in use")

// Registry tracks the set of connected nodes. See the package doc for
// the concurrency contract: callers must only invoke Registry methods
// from the reactor goroutine.
type Registry struct {
	nodes []*Node
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Add tracks n, an accepted but not yet named node, as a pending
// connection. It is not returned by Find or
// Snapshot until Register succeeds.
func (r *Registry) Add(n *Node) {
	r.nodes = append(r.nodes, n)
}

// Register binds a name to n. It fails if n already has a name, or if
// another registered node already holds name. On success it computes
// n's public object path.
func (r *Registry) Register(n *Node, name string) error {
	if n.Registered() {
		return ErrAddressInUse
	}
	if idx := slices.IndexFunc(r.nodes, func(x *Node) bool {
		return x != n && x.Name == name
	}); idx >= 0 {
		return ErrAddressInUse
	}
	n.Name = name
	n.ObjectPath = dbus.ObjectPath(NodeObjectPathPrefix + name)
	return nil
}

// Find performs a linear scan for the registered node holding name.
// Fleets are small enough that this beats maintaining an index. Returns
// nil if no registered node holds name.
func (r *Registry) Find(name string) *Node {
	idx := slices.IndexFunc(r.nodes, func(x *Node) bool {
		return x.Registered() && x.Name == name
	})
	if idx < 0 {
		return nil
	}
	return r.nodes[idx]
}

// Remove drops n from the registry. Safe to call whether or not n was
// ever registered: disconnect handling applies to any accepted
// connection, registered or not.
func (r *Registry) Remove(n *Node) {
	idx := slices.IndexFunc(r.nodes, func(x *Node) bool { return x == n })
	if idx < 0 {
		return
	}
	r.nodes = append(r.nodes[:idx], r.nodes[idx+1:]...)
}

// Snapshot returns the registered nodes in the order they were added
// (accepted), not the order their Register calls succeeded. The
// slice is a fresh copy; callers (chiefly a job's start routine) may
// hold onto it after later registry mutations without racing.
func (r *Registry) Snapshot() []*Node {
	out := make([]*Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		if n.Registered() {
			out = append(out, n)
		}
	}
	return out
}

// Len reports the number of registered nodes.
func (r *Registry) Len() int {
	n := 0
	for _, node := range r.nodes {
		if node.Registered() {
			n++
		}
	}
	return n
}

// All returns every tracked connection, registered or still pending its
// first Register call. Used at shutdown to close every open socket.
func (r *Registry) All() []*Node {
	out := make([]*Node, len(r.nodes))
	copy(out, r.nodes)
	return out
}
