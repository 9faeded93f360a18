// Package wire implements the peer transport contract: framed
// request/response and signal messaging over a single socket, with
// object-path/interface/method/property dispatch.
//
// The core (registry, job engine, orchestrator facade) depends only on
// [PeerTransport]; this package's [Peer] type is the one implementation
// it uses, built on github.com/godbus/dbus/v5 for message framing,
// object export, signal emission, and asynchronous calls. godbus itself
// only implements the client half of the D-Bus SASL handshake, so this
// package supplies the minimal server-side EXTERNAL responder needed to
// accept a freshly-connected socket as a trusted peer without involving
// an external bus daemon; see auth_external.go.
package wire
