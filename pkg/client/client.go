package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cuemby/fleetd/pkg/bus"
)

const dialTimeout = 10 * time.Second

// publicOrchestratorPath and publicOrchestratorInterface must match
// pkg/orchestrator's public-facing constants; duplicated here rather than
// imported so the client package never depends on the orchestrator
// package's internals.
const (
	publicOrchestratorPath      = "/org/fleetd/Orchestrator"
	publicOrchestratorInterface = "org.fleetd.Orchestrator1"
)

// Client is a thin wrapper around a bus connection to a running
// orchestrator's public listener, used by the CLI's isolate and watch
// subcommands. One Serve loop runs for the lifetime of the connection;
// Watch installs a callback on it rather than starting a second loop.
type Client struct {
	conn    *bus.Conn
	handler *dispatchHandler
	done    chan struct{}
}

type dispatchHandler struct {
	mu      sync.Mutex
	onEvent func(signal, payload string)
}

func (h *dispatchHandler) HandleCall(path, iface, member string, body json.RawMessage) (json.RawMessage, *bus.Error) {
	return nil, bus.NewError(bus.ErrNameUnknownMethod, "client does not accept incoming calls")
}

func (h *dispatchHandler) HandleSignal(path, iface, member string, body json.RawMessage) {
	h.mu.Lock()
	onEvent := h.onEvent
	h.mu.Unlock()
	if onEvent != nil {
		onEvent(member, string(body))
	}
}

func (h *dispatchHandler) setOnEvent(fn func(signal, payload string)) {
	h.mu.Lock()
	h.onEvent = fn
	h.mu.Unlock()
}

// Dial connects to the orchestrator's public listen address, completes
// the Hello handshake, and starts the connection's read loop in the
// background.
func Dial(ctx context.Context, addr string) (*Client, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp4", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	bc := bus.NewConn(conn)
	h := &dispatchHandler{}
	c := &Client{conn: bc, handler: h, done: make(chan struct{})}

	go func() {
		_ = bc.Serve(context.Background(), h)
		close(c.done)
	}()

	var helloReply json.RawMessage
	if err := bc.Call(ctx, "/org/freedesktop/DBus", "org.freedesktop.DBus", "Hello", nil, &helloReply); err != nil {
		bc.Close()
		return nil, fmt.Errorf("hello handshake: %w", err)
	}
	return c, nil
}

// Close disconnects from the orchestrator.
func (c *Client) Close() error {
	return c.conn.Close()
}

// IsolateAll requests the orchestrator fan an isolate call out to every
// connected node and returns the object path of the job it queued.
func (c *Client) IsolateAll(ctx context.Context, target string) (string, error) {
	req := struct {
		Target string `json:"target"`
	}{Target: target}

	var jobPath string
	err := c.conn.Call(ctx, publicOrchestratorPath, publicOrchestratorInterface, "IsolateAll", req, &jobPath)
	if err != nil {
		return "", fmt.Errorf("isolate-all: %w", err)
	}
	return jobPath, nil
}

// Watch installs onEvent for every JobNew/JobRemoved/PropertiesChanged
// signal the orchestrator emits, and blocks until ctx is cancelled or the
// connection closes.
func (c *Client) Watch(ctx context.Context, onEvent func(signal, payload string)) error {
	c.handler.setOnEvent(onEvent)
	defer c.handler.setOnEvent(nil)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("connection to orchestrator closed")
	}
}
