package metrics

import (
	"context"
	"net"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/fleetd/pkg/events"
	"github.com/cuemby/fleetd/pkg/reactor"
	"github.com/cuemby/fleetd/pkg/registry"
)

type fakeQueueStats struct{ depth int }

func (f fakeQueueStats) QueueDepth() int { return f.depth }

func TestCollectorSamplesRegistryAndQueue(t *testing.T) {
	r := reactor.New(8)
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)

	reg := registry.New(r, broker)
	serverSide, clientSide := net.Pipe()
	r.Call(func() { reg.Accept(ctx, serverSide) })
	t.Cleanup(func() { clientSide.Close() })

	c := NewCollector(reg, fakeQueueStats{depth: 7})
	c.collect()

	assert.Equal(t, float64(1), testutil.ToFloat64(NodesTotal.WithLabelValues("connected")))
	assert.Equal(t, float64(0), testutil.ToFloat64(NodesTotal.WithLabelValues("registered")))
	assert.Equal(t, float64(7), testutil.ToFloat64(JobQueueDepth))
}

func TestCollectorStartStop(t *testing.T) {
	r := reactor.New(8)
	broker := events.NewBroker()
	broker.Start()
	t.Cleanup(broker.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx)

	reg := registry.New(r, broker)
	c := NewCollector(reg, fakeQueueStats{})
	c.Start()
	c.Stop()
	require.NotNil(t, c)
}
