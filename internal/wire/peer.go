package wire

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/fleetkit/orchestrator/internal/reactor"
)

// disconnectedSignal is the well-known peer-mode signal godbus delivers
// on the connection's own Signal channel when the underlying transport
// closes or errors. There being no bus daemon to route a real signal,
// godbus synthesizes this one locally.
const disconnectedSignal = "org.freedesktop.DBus.Local.Disconnected"

// Peer is a [PeerTransport] backed by a single server-mode
// github.com/godbus/dbus/v5 connection over an already-accepted socket.
type Peer struct {
	conn    *dbus.Conn
	reactor *reactor.Reactor
	signals chan *dbus.Signal
	src     *reactor.Source
}

// Accept completes the server-side SASL handshake on conn, wraps it as
// a D-Bus peer connection, and starts pumping its signal channel for
// Disconnected notifications. onDisconnected runs on the reactor
// goroutine, at most once. Accept itself does not block the reactor:
// the handshake runs synchronously on the caller's goroutine (the
// orchestrator's per-connection accept goroutine, off the reactor), and
// the signal pump runs on its own goroutine thereafter.
func Accept(ctx context.Context, r *reactor.Reactor, conn net.Conn, onDisconnected func()) (*Peer, error) {
	if err := serverHandshake(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("peer handshake: %w", err)
	}

	dc, err := dbus.NewConn(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("wrapping peer connection: %w", err)
	}

	signals := make(chan *dbus.Signal, 16)
	dc.Signal(signals)

	srcCtx, src := reactor.NewSource(ctx)
	p := &Peer{conn: dc, reactor: r, signals: signals, src: src}
	go p.pumpSignals(srcCtx, onDisconnected)
	return p, nil
}

func (p *Peer) pumpSignals(ctx context.Context, onDisconnected func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-p.signals:
			if !ok {
				return
			}
			if sig.Name == disconnectedSignal {
				p.reactor.Post(func() {
					if onDisconnected != nil {
						onDisconnected()
					}
				})
				return
			}
		}
	}
}

// Export implements [PeerTransport].
func (p *Peer) Export(handler any, path dbus.ObjectPath, iface string) error {
	return p.conn.Export(handler, path, iface)
}

// Emit implements [PeerTransport].
func (p *Peer) Emit(path dbus.ObjectPath, iface, signal string, args ...any) error {
	return p.conn.Emit(path, iface+"."+signal, args...)
}

// Go implements [PeerTransport]. There is exactly one peer at the other
// end of a direct connection, so the call is addressed to the empty
// destination: there is no bus daemon to route through.
func (p *Peer) Go(path dbus.ObjectPath, iface, method string, timeout time.Duration, done func(Reply), args ...any) {
	obj := p.conn.Object("", path)
	ch := make(chan *dbus.Call, 1)
	obj.Go(iface+"."+method, 0, ch, args...)

	delivered := make(chan struct{})
	timer := time.AfterFunc(timeout, func() {
		select {
		case <-delivered:
			return
		default:
		}
		p.reactor.Post(func() {
			select {
			case <-delivered:
			default:
				close(delivered)
				done(Reply{Err: ErrCallTimedOut})
			}
		})
	})

	go func() {
		call := <-ch
		timer.Stop()
		p.reactor.Post(func() {
			select {
			case <-delivered:
				return
			default:
			}
			close(delivered)
			done(Reply{Err: call.Err, Body: call.Body})
		})
	}()
}

// Close implements [PeerTransport].
func (p *Peer) Close() error {
	p.src.Dispose()
	return p.conn.Close()
}
