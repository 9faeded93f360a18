// Package reactor implements the single-threaded cooperative event loop
// that drives every state transition in the orchestrator.
//
// # Overview
//
// Every mutation of node registry state, job queue state, and job
// lifecycle happens on exactly one goroutine: the reactor's run loop.
// Everything else (peer connection readers, the D-Bus signal pump,
// HTTP handlers on the status surface) only ever *submits work* to the
// reactor via [Reactor.Post]; it never touches orchestrator state
// directly. This is what lets the rest of the core avoid locks entirely:
// correctness follows from the reactor's single-consumer guarantee, not
// from mutex discipline.
//
// # Deferred sources
//
// A deferred source ([Reactor.Defer]) runs exactly once, on the next
// turn of the loop, after the handler that scheduled it has returned to
// the top level. This exists to break recursion: a job's completion
// callback runs inside some other callback's stack (a peer reply
// handler, say), and starting the next queued job from that same stack
// would nest job lifecycles inside each other. Deferring hoists the
// transition back to the top of the loop.
//
// # Sources and disposal
//
// A [Source] wraps a cancellable background activity (a connection
// reader, a timer) that feeds tasks into the reactor. Disposing a
// source is safe to call from inside that very source's own callback:
// disposal only flips a guard and cancels a context; it never blocks on
// the goroutine that's disposing itself.
package reactor
