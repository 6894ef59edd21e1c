package client

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/fleetd/pkg/bus"
)

// fakeOrchestrator answers the Hello handshake and IsolateAll the way a
// real orchestrator's public listener would, and can emit signals on
// demand for Watch tests.
type fakeOrchestrator struct {
	conn *bus.Conn
}

func (f *fakeOrchestrator) HandleCall(path, iface, member string, body json.RawMessage) (json.RawMessage, *bus.Error) {
	switch member {
	case "Hello":
		return mustMarshal(":1.0"), nil
	case "IsolateAll":
		return mustMarshal("/org/fleetd/jobs/1"), nil
	}
	return nil, bus.NewError(bus.ErrNameUnknownMethod, "no such method")
}

func (f *fakeOrchestrator) HandleSignal(path, iface, member string, body json.RawMessage) {}

func mustMarshal(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}

func dialFake(t *testing.T) (*Client, *bus.Conn) {
	t.Helper()
	serverSide, clientSide := net.Pipe()

	serverConn := bus.NewConn(serverSide)
	fake := &fakeOrchestrator{conn: serverConn}
	go func() { _ = serverConn.Serve(context.Background(), fake) }()

	bc := bus.NewConn(clientSide)
	h := &dispatchHandler{}
	c := &Client{conn: bc, handler: h, done: make(chan struct{})}
	go func() {
		_ = bc.Serve(context.Background(), h)
		close(c.done)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var reply json.RawMessage
	require.NoError(t, bc.Call(ctx, "/org/freedesktop/DBus", "org.freedesktop.DBus", "Hello", nil, &reply))

	return c, serverConn
}

func TestIsolateAllReturnsJobPath(t *testing.T) {
	c, serverConn := dialFake(t)
	defer c.Close()
	defer serverConn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	path, err := c.IsolateAll(ctx, "staging")
	require.NoError(t, err)
	assert.Equal(t, "/org/fleetd/jobs/1", path)
}

func TestWatchDeliversSignalsUntilCancelled(t *testing.T) {
	c, serverConn := dialFake(t)
	defer c.Close()
	defer serverConn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan string, 1)

	go func() {
		_ = c.Watch(ctx, func(signal, payload string) {
			received <- signal
		})
	}()

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, serverConn.Emit("/org/fleetd/Orchestrator", "org.fleetd.Orchestrator1", "JobNew", map[string]string{"id": "1"}))

	select {
	case signal := <-received:
		assert.Equal(t, "JobNew", signal)
	case <-time.After(time.Second):
		t.Fatal("signal was not delivered to Watch callback")
	}

	cancel()
}
