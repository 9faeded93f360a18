package job

import "github.com/godbus/dbus/v5"

// State is a job's position in its lifecycle.
type State string

const (
	StateWaiting  State = "waiting"
	StateRunning  State = "running"
	StateFinished State = "finished"
)

// Result is the outcome of a finished job. Only Done is currently
// produced by any job variant; the rest of the token set is committed
// to now as the wire contract so a future variant (or a cancellation
// path) can start emitting them without a breaking change.
type Result string

const (
	ResultDone      Result = "done"
	ResultCancelled Result = "cancelled"
	ResultFailed    Result = "failed"
	ResultTimeout   Result = "timeout"
)

// Type names a job's variant. The set is closed for this version of the
// system, initially just IsolateAll.
type Type string

const TypeIsolateAll Type = "IsolateAll"

// Behaviors are the three callable slots a job variant provides. Start
// must not block; it registers asynchronous work and returns. Cancel
// and Destroy may be nil, meaning "no-op".
type Behaviors struct {
	Start   func(j *Job)
	Cancel  func(j *Job)
	Destroy func(j *Job)
}

// Job is one orchestrated operation.
type Job struct {
	ID         uint32
	Type       Type
	ObjectPath dbus.ObjectPath

	// SourceMessage is the originating client request, held for its
	// lifetime-extension effect: keeps the request's argument buffers
	// valid for the job's duration, and leaves a place for a future
	// version to defer its reply. Nothing in this version reads it back
	// out.
	SourceMessage any

	// Extra is the variant's opaque per-job state. Only the variant's
	// own Behaviors closures know its concrete type.
	Extra any

	// OnStateChange, if set, is invoked synchronously every time state
	// transitions to a new value. The orchestrator facade uses this to
	// emit exactly one PropertiesChanged per real transition. Must be
	// set (by whoever enqueued the job) before the job's first
	// transition, i.e. before the scheduler's deferred start fires.
	OnStateChange func(State)

	behaviors Behaviors
	state     State
	result    Result
	finish    func(Result)
}

// State returns the job's current lifecycle state.
func (j *Job) State() State { return j.state }

// Result returns the job's outcome. Meaningful only once State returns
// StateFinished.
func (j *Job) Result() Result { return j.result }

// Finish declares the job complete with the given result. It is the
// public entry point variant Start/reply callbacks use in place of
// calling the queue directly.
func (j *Job) Finish(result Result) {
	j.finish(result)
}

func (j *Job) setState(s State) {
	if j.state == s {
		return
	}
	j.state = s
	if j.OnStateChange != nil {
		j.OnStateChange(s)
	}
}
