package orchestrator

import (
	"errors"

	"github.com/godbus/dbus/v5"

	"github.com/fleetkit/orchestrator/internal/registry"
	"github.com/fleetkit/orchestrator/internal/wire"
)

// mapRegistryError translates a registry-layer error into the
// method-call error surfaced back to the calling peer.
func mapRegistryError(err error) *dbus.Error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, registry.ErrAddressInUse):
		return wire.NewError(wire.ErrNameAddressInUse, err.Error())
	default:
		return wire.NewError(wire.ErrNameTransportFailure, err.Error())
	}
}
