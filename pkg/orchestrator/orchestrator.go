package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/rs/zerolog"

	"github.com/cuemby/fleetd/pkg/bus"
	"github.com/cuemby/fleetd/pkg/events"
	"github.com/cuemby/fleetd/pkg/job"
	"github.com/cuemby/fleetd/pkg/log"
	"github.com/cuemby/fleetd/pkg/reactor"
	"github.com/cuemby/fleetd/pkg/registry"
	"github.com/cuemby/fleetd/pkg/types"
)

const (
	// PublicOrchestratorPath and PublicOrchestratorInterface are where
	// external clients find IsolateAll and subscribe to JobNew/JobRemoved.
	PublicOrchestratorPath      = "/org/fleetd/Orchestrator"
	PublicOrchestratorInterface = "org.fleetd.Orchestrator1"

	// JobInterface is published at each job's object path.
	JobInterface = "org.fleetd.Job1"
)

// Config configures an Orchestrator.
type Config struct {
	// NodeListenAddr is the node protocol listener, conventionally
	// ":1999" per the node protocol's well-known port.
	NodeListenAddr string

	// PublicListenAddr is the public bus listener external clients dial.
	PublicListenAddr string
}

// Orchestrator is the process-wide facade (C5): it owns the reactor, the
// node registry, the job engine, and the set of connected public clients,
// and it is the only component that translates job-engine lifecycle
// callbacks into bus signals.
type Orchestrator struct {
	cfg      Config
	reactor  *reactor.Reactor
	broker   *events.Broker
	registry *registry.Registry
	engine   *job.Engine
	logger   zerolog.Logger

	publicClients map[*bus.Conn]struct{}
}

// New builds an Orchestrator. Nothing is listening yet; call Run to start
// accepting connections and driving the reactor.
func New(cfg Config, broker *events.Broker) *Orchestrator {
	r := reactor.New(256)
	o := &Orchestrator{
		cfg:           cfg,
		reactor:       r,
		broker:        broker,
		registry:      registry.New(r, broker),
		engine:        job.New(r, broker),
		logger:        log.WithComponent("orchestrator"),
		publicClients: make(map[*bus.Conn]struct{}),
	}

	o.engine.OnJobNew = o.onJobNew
	o.engine.OnJobRemoved = o.onJobRemoved
	o.engine.OnStateChanged = o.onStateChanged

	return o
}

// Registry returns the node registry, for callers (metrics, health) that
// only need to observe it.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.registry
}

// Engine returns the job engine, for callers that only need to observe it.
func (o *Orchestrator) Engine() *job.Engine {
	return o.engine
}

// Run binds both listeners and drives the reactor until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	nodeLn, err := net.Listen("tcp4", o.cfg.NodeListenAddr)
	if err != nil {
		return fmt.Errorf("listen on node address %s: %w", o.cfg.NodeListenAddr, err)
	}

	publicLn, err := net.Listen("tcp4", o.cfg.PublicListenAddr)
	if err != nil {
		_ = nodeLn.Close()
		return fmt.Errorf("listen on public address %s: %w", o.cfg.PublicListenAddr, err)
	}

	go func() {
		<-ctx.Done()
		_ = nodeLn.Close()
		_ = publicLn.Close()
	}()

	o.logger.Info().Str("addr", o.cfg.NodeListenAddr).Msg("node listener started")
	go acceptLoop(ctx, nodeLn, func(c net.Conn) {
		o.reactor.Post(func() { o.registry.Accept(ctx, c) })
	})

	o.logger.Info().Str("addr", o.cfg.PublicListenAddr).Msg("public bus listener started")
	go acceptLoop(ctx, publicLn, func(c net.Conn) {
		o.reactor.Post(func() { o.acceptPublicClient(ctx, c) })
	})

	o.reactor.Run(ctx)
	return nil
}

func acceptLoop(ctx context.Context, ln net.Listener, onAccept func(net.Conn)) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Errorf("accept failed", err)
				continue
			}
		}
		onAccept(conn)
	}
}

// acceptPublicClient wires up a freshly accepted public-bus client: the
// DBus handshake stub, IsolateAll, and signal delivery for as long as the
// connection lasts. It runs on the reactor goroutine.
func (o *Orchestrator) acceptPublicClient(ctx context.Context, conn net.Conn) {
	bc := bus.NewConn(conn)

	router := bus.NewRouter()
	router.HandleMethod(registry.DBusObjectPath, registry.DBusInterface, "Hello", func(json.RawMessage) (json.RawMessage, *bus.Error) {
		return mustMarshal(":1.0"), nil
	})
	router.HandleMethod(PublicOrchestratorPath, PublicOrchestratorInterface, "IsolateAll", o.handleIsolateAll)

	bc.OnDisconnect = func(err error) {
		o.reactor.Post(func() { delete(o.publicClients, bc) })
	}

	o.publicClients[bc] = struct{}{}
	go func() {
		_ = bc.Serve(ctx, router)
	}()
}

// handleIsolateAll implements the IsolateAll method: it queues an
// IsolateAll job and replies with the job's object path immediately,
// without waiting for the fleet to respond. It runs on a bus dispatch
// goroutine and crosses onto the reactor to touch the job engine.
func (o *Orchestrator) handleIsolateAll(body json.RawMessage) (json.RawMessage, *bus.Error) {
	var req struct {
		Target string `json:"target"`
	}
	if err := json.Unmarshal(body, &req); err != nil || req.Target == "" {
		return nil, bus.InvalidArgument("IsolateAll requires a non-empty target")
	}

	var objectPath string
	o.reactor.Call(func() {
		behaviors := job.NewIsolateAll(o.engine, o.registry, req.Target)
		j := o.engine.QueueJob(types.JobIsolateAll, req.Target, behaviors)
		objectPath = j.ObjectPath
	})

	return mustMarshal(objectPath), nil
}

type jobNewSignal struct {
	ID  string `json:"id"`
	Job string `json:"job"`
}

type jobRemovedSignal struct {
	ID     string `json:"id"`
	Job    string `json:"job"`
	Result string `json:"result"`
}

type propertiesChangedSignal struct {
	Property string `json:"property"`
	Value    string `json:"value"`
}

// onJobNew, onJobRemoved and onStateChanged are invoked by the job engine
// on the reactor goroutine; broadcasting here needs no extra hop.
func (o *Orchestrator) onJobNew(j *job.Job) {
	o.broadcast(PublicOrchestratorPath, PublicOrchestratorInterface, "JobNew", jobNewSignal{ID: j.ID, Job: j.ObjectPath})
}

func (o *Orchestrator) onJobRemoved(j *job.Job) {
	o.broadcast(PublicOrchestratorPath, PublicOrchestratorInterface, "JobRemoved", jobRemovedSignal{ID: j.ID, Job: j.ObjectPath, Result: string(j.Result)})
}

func (o *Orchestrator) onStateChanged(j *job.Job) {
	o.broadcast(j.ObjectPath, JobInterface, "PropertiesChanged", propertiesChangedSignal{Property: "State", Value: string(j.State)})
}

func (o *Orchestrator) broadcast(path, iface, member string, payload any) {
	for c := range o.publicClients {
		if err := c.Emit(path, iface, member, payload); err != nil {
			o.logger.Warn().Err(err).Msg("failed to deliver signal to public client")
		}
	}
}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
