// Package status serves a read-only HTTP view of the orchestrator's
// job queue and node registry, for operators who'd rather curl an
// endpoint than speak the bus protocol.
//
// Every handler that reads orchestrator state takes its snapshot on the
// reactor goroutine: it posts a closure and blocks on a channel for the
// result, the same pattern used by the exported bus methods in package
// orchestrator. It never issues a node
// call or mutates state.
package status
