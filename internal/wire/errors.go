package wire

import "github.com/godbus/dbus/v5"

// D-Bus error names for the closed set of error kinds the orchestrator
// surfaces to a caller (client or node). This is the full reserved
// contract: AddressInUse and TransportFailure are the two currently
// returned by mapRegistryError, while NoMemory, InvalidArgument, and
// CallTimeout are reserved names for failure modes not yet produced by
// any current call site (a synchronous method call today either
// succeeds or fails with one of the two in use; CallTimeout is instead
// reported through a job's Result property, see job.ResultTimeout).
// Keeping the full set named here means adding the call site later
// never requires choosing a new error name.
const (
	ErrNameNoMemory         = "org.fleetkit.Orchestrator.Error.NoMemory"
	ErrNameInvalidArgument  = "org.fleetkit.Orchestrator.Error.InvalidArgument"
	ErrNameAddressInUse     = "org.fleetkit.Orchestrator.Error.AddressInUse"
	ErrNameTransportFailure = "org.fleetkit.Orchestrator.Error.TransportFailure"
	ErrNameCallTimeout      = "org.fleetkit.Orchestrator.Error.CallTimeout"
)

// NewError builds a *dbus.Error carrying a single human-readable message,
// the shape [dbus.Conn.Export]-dispatched methods return to signal
// failure to the caller.
func NewError(name, message string) *dbus.Error {
	return dbus.NewError(name, []any{message})
}
