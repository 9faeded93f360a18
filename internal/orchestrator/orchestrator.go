package orchestrator

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fleetkit/orchestrator/internal/job"
	"github.com/fleetkit/orchestrator/internal/reactor"
	"github.com/fleetkit/orchestrator/internal/registry"
	"github.com/fleetkit/orchestrator/internal/status"
	"github.com/fleetkit/orchestrator/internal/wire"
)

const (
	handshakePath = dbus.ObjectPath("/org/freedesktop/DBus")
	handshakeName = "org.freedesktop.DBus"
	peerPath      = dbus.ObjectPath("/org/fleetkit/Orchestrator/peer")

	orchestratorIface = "org.fleetkit.Orchestrator1"
	orchestratorPath  = dbus.ObjectPath("/org/fleetkit/Orchestrator")
	jobIface          = "org.fleetkit.Orchestrator1.Job"
	nodeIface         = "org.fleetkit.Orchestrator1.Node"
)

// busConn is the subset of *dbus.Conn the facade and registration paths
// need. Factoring it out, the same way [wire.PeerTransport] factors out
// the peer-connection surface, lets tests exercise the orchestrator's
// wiring against a recording double instead of a live session bus.
type busConn interface {
	Export(v any, path dbus.ObjectPath, iface string) error
	Emit(path dbus.ObjectPath, name string, values ...any) error
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)
	Close() error
}

// Orchestrator wires the reactor, node registry, and job queue together
// and publishes the public bus facade.
type Orchestrator struct {
	reactor  *reactor.Reactor
	registry *registry.Registry
	jobs     *job.Queue
	log      zerolog.Logger

	busName     string
	bus         busConn
	callTimeout time.Duration

	listener net.Listener
}

// New constructs an Orchestrator bound to r. callTimeout is the
// per-node call deadline used for IsolateAll fan-outs; 0 selects
// job.DefaultIsolateTimeout. Start must be called before it does
// anything.
func New(r *reactor.Reactor, busName string, callTimeout time.Duration, log zerolog.Logger) *Orchestrator {
	o := &Orchestrator{
		reactor:     r,
		registry:    registry.New(),
		busName:     busName,
		callTimeout: callTimeout,
		log:         log,
	}
	o.jobs = job.New(r)
	o.jobs.OnNew = o.onJobNew
	o.jobs.OnRemoved = o.onJobRemoved
	return o
}

// Start acquires the public bus name, publishes the facade object, and
// begins accepting node connections on listenAddr. It returns once the
// listener is up; accepting runs in the background until Stop closes
// the listener. Cancelling ctx alone does not close the listener.
func (o *Orchestrator) Start(ctx context.Context, listenAddr string) error {
	bus, err := dbus.ConnectSessionBus()
	if err != nil {
		return fmt.Errorf("connecting to session bus: %w", err)
	}
	o.bus = bus

	reply, err := bus.RequestName(o.busName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("requesting bus name %s: %w", o.busName, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s is already owned", o.busName)
	}

	if err := o.publishFacade(); err != nil {
		return fmt.Errorf("publishing orchestrator facade: %w", err)
	}

	// Go's net package already sets SO_REUSEADDR on TCP listeners; no
	// custom socket control function is needed to match that part of
	// the listener contract.
	ln, err := net.Listen("tcp4", listenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listenAddr, err)
	}
	o.listener = ln

	go o.acceptLoop(ctx)
	return nil
}

func (o *Orchestrator) acceptLoop(ctx context.Context) {
	for {
		conn, err := o.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			o.log.Error().Err(err).Msg("accept failed, no longer accepting connections")
			return
		}
		// The handshake runs synchronously on its own goroutine rather
		// than the accept loop's, so one slow or hostile peer cannot
		// stall the next accept. Nothing it touches is shared state
		// until the reactor-posted registry.Add below.
		go o.acceptOne(conn)
	}
}

func (o *Orchestrator) acceptOne(conn net.Conn) {
	n := &registry.Node{ServerID: uuid.NewString()}

	peer, err := wire.Accept(context.Background(), o.reactor, conn, func() {
		o.onNodeDisconnected(n)
	})
	if err != nil {
		o.log.Warn().Err(err).Str("server_id", n.ServerID).Msg("peer handshake failed")
		return
	}
	n.Transport = peer

	if err := peer.Export(handshakeStub{}, handshakePath, handshakeName); err != nil {
		o.log.Error().Err(err).Msg("exporting handshake stub")
		peer.Close()
		return
	}
	if err := peer.Export(&peerServer{orch: o, node: n}, peerPath, job.PeerInterface); err != nil {
		o.log.Error().Err(err).Msg("exporting peer interface")
		peer.Close()
		return
	}

	o.reactor.Post(func() {
		o.registry.Add(n)
		o.log.Info().Str("server_id", n.ServerID).Msg("node connected")
	})
}

// handshakeStub answers the peer's initial org.freedesktop.DBus.Hello
// call so the connection looks like an ordinary bus client to the node
// side of the protocol.
type handshakeStub struct{}

func (handshakeStub) Hello() (string, *dbus.Error) {
	return ":1.0", nil
}

// peerServer is exported to a single node's direct connection, handling
// that node's Register call.
type peerServer struct {
	orch *Orchestrator
	node *registry.Node
}

func (p *peerServer) Register(name string) *dbus.Error {
	result := make(chan *dbus.Error, 1)
	p.orch.reactor.Post(func() {
		result <- p.orch.handleRegister(p.node, name)
	})
	return <-result
}

// handleRegister runs on the reactor goroutine.
func (o *Orchestrator) handleRegister(n *registry.Node, name string) *dbus.Error {
	if err := o.registry.Register(n, name); err != nil {
		return mapRegistryError(err)
	}
	if err := o.bus.Export(&nodeObject{}, n.ObjectPath, nodeIface); err != nil {
		o.log.Error().Err(err).Str("name", name).Msg("publishing node object")
	}
	o.log.Info().Str("name", name).Str("server_id", n.ServerID).Msg("node registered")
	return nil
}

// nodeObject is the per-node public bus object. It is currently empty
// but reserved for future node-directed RPC.
type nodeObject struct{}

// onNodeDisconnected runs on the reactor goroutine (wire.Peer already
// posts there before invoking this callback).
func (o *Orchestrator) onNodeDisconnected(n *registry.Node) {
	o.registry.Remove(n)
	if n.Name != "" {
		if err := o.bus.Export(nil, n.ObjectPath, nodeIface); err != nil {
			o.log.Warn().Err(err).Str("name", n.Name).Msg("unexporting disconnected node")
		}
	}
	n.Transport.Close()
	o.log.Info().Str("name", n.Name).Str("server_id", n.ServerID).Msg("node disconnected")
}

func (o *Orchestrator) onJobNew(j *job.Job) {
	// prop.Export needs a concrete *dbus.Conn. A busConn double used in
	// tests skips property publishing (and the PropertiesChanged
	// notifications it drives) but still exercises the JobNew signal
	// path below.
	if conn, ok := o.bus.(*dbus.Conn); ok {
		props := map[string]map[string]*prop.Prop{
			jobIface: {
				"JobType": {Value: string(j.Type), Writable: false, Emit: prop.EmitTrue},
				"State":   {Value: string(j.State()), Writable: false, Emit: prop.EmitTrue},
			},
		}
		p, err := prop.Export(conn, j.ObjectPath, props)
		if err != nil {
			o.log.Error().Err(err).Uint32("job_id", j.ID).Msg("exporting job properties")
		} else {
			j.OnStateChange = func(s job.State) {
				p.SetMust(jobIface, "State", string(s))
			}
			o.exportJobIntrospection(j.ObjectPath, p)
		}
	}

	if err := o.bus.Emit(orchestratorPath, orchestratorIface+".JobNew", j.ID, j.ObjectPath); err != nil {
		o.log.Error().Err(err).Msg("emitting JobNew")
	}
	o.log.Info().Uint32("job_id", j.ID).Str("type", string(j.Type)).Msg("job queued")
}

func (o *Orchestrator) onJobRemoved(j *job.Job) {
	if err := o.bus.Emit(orchestratorPath, orchestratorIface+".JobRemoved", j.ID, j.ObjectPath, string(j.Result())); err != nil {
		o.log.Error().Err(err).Msg("emitting JobRemoved")
	}
	if err := o.bus.Export(nil, j.ObjectPath, jobIface); err != nil {
		o.log.Warn().Err(err).Uint32("job_id", j.ID).Msg("unexporting finished job")
	}
	o.log.Info().Uint32("job_id", j.ID).Str("result", string(j.Result())).Msg("job finished")
}

// StatusHandler returns the read-only HTTP status surface for this
// orchestrator's job queue and node registry. The caller owns the
// http.Server it's mounted on.
func (o *Orchestrator) StatusHandler() http.Handler {
	return status.New(o.reactor, o.registry, o.jobs).Handler()
}

func jobObjectPath(id uint32) dbus.ObjectPath {
	return dbus.ObjectPath(fmt.Sprintf("/org/fleetkit/Orchestrator/jobs/%d", id))
}

// Stop stops accepting new connections and, once no job is Running,
// closes every peer connection and the public bus connection. If a job
// is currently Running it is allowed to finish first. The returned
// channel is closed once teardown completes; the caller is then free to
// stop the reactor itself.
func (o *Orchestrator) Stop() <-chan struct{} {
	done := make(chan struct{})
	o.reactor.Post(func() {
		if o.listener != nil {
			o.listener.Close()
		}
		teardown := func() {
			for _, n := range o.registry.All() {
				n.Transport.Close()
			}
			if o.bus != nil {
				o.bus.Close()
			}
			close(done)
		}
		if o.jobs.Current() == nil {
			teardown()
			return
		}
		previous := o.jobs.OnRemoved
		o.jobs.OnRemoved = func(j *job.Job) {
			if previous != nil {
				previous(j)
			}
			o.jobs.OnRemoved = previous
			teardown()
		}
	})
	return done
}
