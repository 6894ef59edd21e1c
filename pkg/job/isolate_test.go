package job

import (
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/fleetd/pkg/bus"
	"github.com/cuemby/fleetd/pkg/events"
	"github.com/cuemby/fleetd/pkg/reactor"
	"github.com/cuemby/fleetd/pkg/registry"
	"github.com/cuemby/fleetd/pkg/types"
)

// nodeStub answers every Isolate call with success, unless instructed to
// fail or hang.
type nodeStub struct {
	fail bool
	hang bool
}

func (n *nodeStub) HandleCall(path, iface, member string, body json.RawMessage) (json.RawMessage, *bus.Error) {
	if n.hang {
		select {}
	}
	if n.fail {
		return nil, bus.NewError(bus.ErrNameFailed, "isolate failed")
	}
	return nil, nil
}
func (n *nodeStub) HandleSignal(path, iface, member string, body json.RawMessage) {}

func setupIsolateTest(t *testing.T) (*Engine, *reactor.Reactor, *registry.Registry, context.Context) {
	t.Helper()
	r := reactor.New(64)
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)

	reg := registry.New(r, broker)
	e := New(r, broker)
	return e, r, reg, ctx
}

// registerStubNode accepts a pipe connection into reg, registers it under
// name, and serves stub on the node's side.
func registerStubNode(t *testing.T, reg *registry.Registry, r *reactor.Reactor, ctx context.Context, name string, stub *nodeStub) {
	t.Helper()
	serverSide, clientSide := net.Pipe()
	r.Call(func() { reg.Accept(ctx, serverSide) })

	nodeConn := bus.NewConn(clientSide)
	go func() { _ = nodeConn.Serve(ctx, stub) }()

	require.NoError(t, nodeConn.Call(ctx, registry.PeerObjectPath, registry.PeerInterface, "Register", map[string]string{"name": name}, nil))
	t.Cleanup(func() { nodeConn.Close() })
}

func TestIsolateAllEmptyFleetFinishesSynchronously(t *testing.T) {
	e, r, reg, _ := setupIsolateTest(t)

	var j *Job
	r.Call(func() {
		behaviors := NewIsolateAll(e, reg, "staging")
		j = e.QueueJob(types.JobIsolateAll, "staging", behaviors)
	})

	require.Eventually(t, func() bool {
		var state types.JobState
		r.Call(func() { state = j.State })
		return state == types.JobStateFinished
	}, time.Second, 5*time.Millisecond)

	var result types.JobResult
	r.Call(func() { result = j.Result })
	assert.Equal(t, types.JobResultDone, result)
}

func TestIsolateAllFansOutToEveryNode(t *testing.T) {
	e, r, reg, ctx := setupIsolateTest(t)

	registerStubNode(t, reg, r, ctx, "node-a", &nodeStub{})
	registerStubNode(t, reg, r, ctx, "node-b", &nodeStub{})

	var j *Job
	r.Call(func() {
		behaviors := NewIsolateAll(e, reg, "staging")
		j = e.QueueJob(types.JobIsolateAll, "staging", behaviors)
	})

	require.Eventually(t, func() bool {
		var state types.JobState
		r.Call(func() { state = j.State })
		return state == types.JobStateFinished
	}, time.Second, 5*time.Millisecond)

	var result types.JobResult
	r.Call(func() { result = j.Result })
	assert.Equal(t, types.JobResultDone, result)
}

func TestIsolateAllCountsFailureAsAcknowledgement(t *testing.T) {
	e, r, reg, ctx := setupIsolateTest(t)

	registerStubNode(t, reg, r, ctx, "good", &nodeStub{})
	registerStubNode(t, reg, r, ctx, "bad", &nodeStub{fail: true})

	var j *Job
	r.Call(func() {
		behaviors := NewIsolateAll(e, reg, "staging")
		j = e.QueueJob(types.JobIsolateAll, "staging", behaviors)
	})

	require.Eventually(t, func() bool {
		var state types.JobState
		r.Call(func() { state = j.State })
		return state == types.JobStateFinished
	}, time.Second, 5*time.Millisecond)

	// A failing node's reply still counts as an acknowledgement: the
	// aggregate result is Done once every node has replied, regardless of
	// whether any individual call failed.
	var result types.JobResult
	r.Call(func() { result = j.Result })
	assert.Equal(t, types.JobResultDone, result)
}
