// Package job implements the job model and scheduler: the Job record,
// the FIFO single-flight queue, the two deferrals that hoist state
// transitions to the top of a reactor turn, and the IsolateAll job
// variant.
//
// # Variant dispatch
//
// A job variant is expressed as a [Behaviors] value: three function
// slots (Start, Cancel, Destroy) closed over whatever extra state the
// variant needs, rather than as a Go interface with one implementation
// per variant. Closures were chosen because the queue never needs to
// know a variant's type, only call its three slots, and Go's closures
// make that trivial without an extra type per variant.
//
// # Why two deferrals
//
// The scheduler defers "start the next job" and the finisher defers
// "tear down the current job, then try to schedule again". Both go
// through [reactor.Reactor.Defer] rather than running inline, because a
// job can finish from inside its own start callback (the empty-fleet
// case) or from inside a reply callback nested arbitrarily deep in
// transport code, and starting the next job from that stack would nest job
// lifecycles inside each other.
package job
