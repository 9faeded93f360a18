// Package registry implements the node connection manager: the set of
// connected nodes, the Register protocol, disconnect handling, and name
// lookup.
//
// # Concurrency
//
// Registry is not safe for concurrent use by design: every component
// callback and job lifecycle transition runs on the single reactor
// goroutine, so there is no application-level locking anywhere in this
// package. Every method here is only ever called from that goroutine
// (see package reactor); a Registry used from more than one goroutine
// is a bug in the caller, not in this package.
//
// # Node lifetimes
//
// A Node is reference-counted so transport callbacks can outlive
// registry membership. Go's garbage collector already makes that
// memory-safe: a *Node reachable from a job's start-time snapshot stays
// alive whether or not the registry still holds it. The refcount on
// [Node] is kept anyway as an explicit liveness counter (the number of
// in-flight job snapshots still holding this node), not because Go
// needs it to avoid a use-after-free.
package registry
