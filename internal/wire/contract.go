package wire

import (
	"time"

	"github.com/godbus/dbus/v5"
)

// PeerTransport is the contract the core depends on for talking to one
// connected node. Any type satisfying this interface may back a node's
// transport; the registry and job engine never reference godbus or
// net.Conn directly, only this interface.
type PeerTransport interface {
	// Export publishes handler's exported methods at path under iface.
	// Future incoming calls to path/iface are dispatched to handler by
	// reflection, the same way [github.com/godbus/dbus/v5.Conn.Export]
	// works.
	Export(handler any, path dbus.ObjectPath, iface string) error

	// Go issues an asynchronous method call to the peer and returns
	// immediately. done is invoked on the reactor goroutine, at most
	// once, either when a reply arrives or when timeout elapses first.
	Go(path dbus.ObjectPath, iface, method string, timeout time.Duration, done func(Reply), args ...any)

	// Emit sends iface.signal from path to the peer.
	Emit(path dbus.ObjectPath, iface, signal string, args ...any) error

	// Close tears down the underlying connection. Idempotent.
	Close() error
}

// Reply is the outcome of an asynchronous peer call issued through
// [PeerTransport.Go]. Err is non-nil for both a transport-level failure
// and a call that timed out; the job engine's current aggregator does
// not distinguish them.
type Reply struct {
	Err  error
	Body []any
}

// ErrCallTimedOut is the Reply.Err value used when a call's timeout
// elapses before any reply arrives.
var ErrCallTimedOut = timeoutError{}

type timeoutError struct{}

func (timeoutError) Error() string { return "call timed out" }
