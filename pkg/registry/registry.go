package registry

import (
	"context"
	"encoding/json"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/fleetd/pkg/bus"
	"github.com/cuemby/fleetd/pkg/events"
	"github.com/cuemby/fleetd/pkg/log"
	"github.com/cuemby/fleetd/pkg/reactor"
	"github.com/cuemby/fleetd/pkg/types"
)

const (
	// DBusObjectPath and DBusInterface satisfy the well-known handshake
	// every bus client performs before doing anything else.
	DBusObjectPath = "/org/freedesktop/DBus"
	DBusInterface  = "org.freedesktop.DBus"

	// PeerObjectPath and PeerInterface are where a freshly accepted node
	// finds the orchestrator's Register method.
	PeerObjectPath = "/org/fleetd/Orchestrator"
	PeerInterface  = "org.fleetd.Orchestrator.Peer"

	// NodeCallObjectPath and NodeCallInterface are the fixed path and
	// interface the orchestrator calls Isolate on, on the node's own
	// side of the connection.
	NodeCallObjectPath = "/org/fleetd/Node"
	NodeCallInterface  = "org.fleetd.Node1"

	publicNodePathPrefix = "/org/fleetd/nodes/"
)

// Node is one accepted connection, tracked from accept until Disconnected.
type Node struct {
	types.Node
	Conn *bus.Conn
}

// Registry is the set of connected nodes. Every exported method that reads
// or mutates node state runs on the reactor goroutine; Accept is posted
// there by the listener's accept loop, and the dispatch-goroutine
// callbacks it wires up use reactor.Call to cross back onto the reactor
// before touching anything.
type Registry struct {
	reactor *reactor.Reactor
	broker  *events.Broker
	nodes   map[string]*Node // keyed by server id
	logger  zerolog.Logger
}

// New creates an empty Registry bound to r.
func New(r *reactor.Reactor, broker *events.Broker) *Registry {
	return &Registry{
		reactor: r,
		broker:  broker,
		nodes:   make(map[string]*Node),
		logger:  log.WithComponent("registry"),
	}
}

// Accept completes the handshake for one freshly accepted socket: it marks
// the peer trusted without any bus-level authentication, assigns it a
// random server id, creates its Node record, publishes the DBus handshake
// stub and the orchestrator's peer interface, and starts the connection's
// read loop. It must be called from the reactor goroutine (the listener's
// accept handler runs there); the read loop itself runs on its own
// goroutine, since Serve blocks.
func (r *Registry) Accept(ctx context.Context, conn net.Conn) {
	serverID := uuid.New().String()
	bc := bus.NewConn(conn)

	n := &Node{
		Node: types.Node{
			ID:          serverID,
			Address:     conn.RemoteAddr(),
			Status:      types.NodeStatusConnected,
			ConnectedAt: time.Now(),
		},
		Conn: bc,
	}

	router := bus.NewRouter()
	router.HandleMethod(DBusObjectPath, DBusInterface, "Hello", func(json.RawMessage) (json.RawMessage, *bus.Error) {
		return mustMarshal(":1." + serverID[:8]), nil
	})
	router.HandleMethod(PeerObjectPath, PeerInterface, "Register", func(body json.RawMessage) (json.RawMessage, *bus.Error) {
		return r.handleRegister(n, body)
	})

	bc.OnDisconnect = func(err error) {
		r.reactor.Post(func() { r.handleDisconnect(n) })
	}

	r.nodes[serverID] = n
	r.logger.Debug().Str("remote_addr", conn.RemoteAddr().String()).Msg("accepted node connection")

	go func() {
		_ = bc.Serve(ctx, router)
	}()
}

func (r *Registry) handleRegister(n *Node, body json.RawMessage) (json.RawMessage, *bus.Error) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Name == "" {
		return nil, bus.InvalidArgument("Register requires a non-empty name")
	}

	var busErr *bus.Error
	r.reactor.Call(func() {
		busErr = r.register(n, req.Name)
	})
	if busErr != nil {
		return nil, busErr
	}
	return mustMarshal(struct{}{}), nil
}

// register is the Register protocol, run on the reactor goroutine: a node
// may only ever claim one name, and two nodes may never claim the same
// name.
func (r *Registry) register(n *Node, name string) *bus.Error {
	if n.Name != "" {
		return bus.AddressInUse(n.Name)
	}
	if _, taken := r.FindNode(name); taken {
		return bus.AddressInUse(name)
	}

	n.Name = name
	n.ObjectPath = publicNodePathPrefix + name

	r.logger.Info().Str("node_name", name).Msg("node registered")
	r.broker.Publish(&events.Event{
		Type:    events.EventNodeRegistered,
		Payload: events.NodePayload{Name: n.Name, ObjectPath: n.ObjectPath},
	})
	return nil
}

// handleDisconnect removes n from the registry. It runs on the reactor
// goroutine. Any outstanding call to n that is still in flight will find
// its Conn already closed and fail on its own; no further call is ever
// issued to a node absent from the registry.
func (r *Registry) handleDisconnect(n *Node) {
	if _, ok := r.nodes[n.ID]; !ok {
		return
	}
	delete(r.nodes, n.ID)
	n.Status = types.NodeStatusDisconnected

	r.logger.Info().Str("node_name", n.Name).Msg("node disconnected")
	r.broker.Publish(&events.Event{
		Type:    events.EventNodeDisconnected,
		Payload: events.NodePayload{Name: n.Name, ObjectPath: n.ObjectPath},
	})
}

// FindNode looks up a registered node by name with a linear scan; the
// fleet is small enough that this never needs to be better than O(n).
func (r *Registry) FindNode(name string) (*Node, bool) {
	for _, n := range r.nodes {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// Nodes returns a snapshot of every currently registered node, safe for
// the caller to range over after the registry has moved on (for example
// while a fan-out job's asynchronous calls are still in flight).
func (r *Registry) Nodes() []*Node {
	out := make([]*Node, 0, len(r.nodes))
	for _, n := range r.nodes {
		if n.Name != "" {
			out = append(out, n)
		}
	}
	return out
}

// Count returns the number of accepted connections, registered or not.
func (r *Registry) Count() int {
	return len(r.nodes)
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
