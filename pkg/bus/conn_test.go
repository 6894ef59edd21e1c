package bus

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoHandler struct {
	signals chan string
}

func (h *echoHandler) HandleCall(path, iface, member string, body json.RawMessage) (json.RawMessage, *Error) {
	switch member {
	case "Fail":
		return nil, NewError(ErrNameFailed, "requested failure")
	case "Never":
		select {} // block forever; the caller is testing abort-on-close
	}
	return body, nil
}

func (h *echoHandler) HandleSignal(path, iface, member string, body json.RawMessage) {
	if h.signals != nil {
		h.signals <- member
	}
}

func pipeConns(t *testing.T) (*Conn, *Conn) {
	t.Helper()
	a, b := net.Pipe()
	return NewConn(a), NewConn(b)
}

func TestConnCallAndReply(t *testing.T) {
	client, server := pipeConns(t)
	defer client.Close()
	defer server.Close()

	go func() { _ = server.Serve(context.Background(), &echoHandler{}) }()
	go func() { _ = client.Serve(context.Background(), &echoHandler{}) }()

	var out string
	err := client.Call(context.Background(), "/obj", "iface", "Echo", "hello", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestConnCallError(t *testing.T) {
	client, server := pipeConns(t)
	defer client.Close()
	defer server.Close()

	go func() { _ = server.Serve(context.Background(), &echoHandler{}) }()
	go func() { _ = client.Serve(context.Background(), &echoHandler{}) }()

	err := client.Call(context.Background(), "/obj", "iface", "Fail", nil, nil)
	require.Error(t, err)

	var busErr *Error
	require.ErrorAs(t, err, &busErr)
	assert.Equal(t, ErrNameFailed, busErr.Name)
}

func TestConnCallTimeout(t *testing.T) {
	client, server := net.Pipe()
	c := NewConn(client)
	defer c.Close()
	defer server.Close()

	// Drain frames off the wire so the call's own write doesn't block, but
	// never reply, so the call must time out rather than hang forever.
	go func() {
		for {
			if _, err := readFrame(server); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := c.Call(ctx, "/obj", "iface", "Slow", nil, nil)
	require.Error(t, err)
}

func TestConnEmitDeliversSignal(t *testing.T) {
	client, server := pipeConns(t)
	defer client.Close()
	defer server.Close()

	received := make(chan string, 1)
	go func() { _ = server.Serve(context.Background(), &echoHandler{signals: received}) }()
	go func() { _ = client.Serve(context.Background(), &echoHandler{}) }()

	require.NoError(t, client.Emit("/obj", "iface", "Ping", "payload"))

	select {
	case member := <-received:
		assert.Equal(t, "Ping", member)
	case <-time.After(time.Second):
		t.Fatal("signal was not delivered")
	}
}

func TestConnCloseAbortsPendingCalls(t *testing.T) {
	client, server := net.Pipe()
	c := NewConn(client)
	s := NewConn(server)

	go func() { _ = s.Serve(context.Background(), &echoHandler{}) }()

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.Call(context.Background(), "/obj", "iface", "Never", nil, nil)
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, c.Close())

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("call did not return after Close")
	}
}
