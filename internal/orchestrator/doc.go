// Package orchestrator wires the reactor, node registry, and job queue
// into a running server: it accepts node connections on a TCP listener,
// drives the per-node handshake and Register protocol, and publishes
// the public bus facade external clients call.
//
// # Crossing back onto the reactor
//
// godbus dispatches an exported method's Go call on whatever goroutine
// owns that message's *dbus.Conn: the public bus connection's own read
// loop for facade methods, one per-peer read loop for each node's
// Register call. None of those goroutines is the reactor goroutine, so
// none of them may touch the registry or job queue directly. Every
// exported method here instead posts a closure to the reactor and
// blocks on a channel for its result, the same hand-off wire.Peer.Go
// uses in the other direction for outgoing calls. This keeps every
// state mutation on the single reactor goroutine while still letting
// godbus's synchronous method-call model work unmodified.
package orchestrator
