package job

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/fleetd/pkg/log"
	"github.com/cuemby/fleetd/pkg/metrics"
	"github.com/cuemby/fleetd/pkg/registry"
	"github.com/cuemby/fleetd/pkg/types"
)

// IsolateTimeout bounds each per-node Isolate call.
const IsolateTimeout = 30 * time.Second

// IsolateAll fans an Isolate(target) call out to every currently
// registered node and finishes once every call has replied, timed out, or
// failed. Per the source behavior this port stays faithful to (see
// DESIGN.md), every outcome — success, error, or timeout — counts as an
// acknowledgement; partial failure is not distinguished from success in
// the aggregate result.
type IsolateAll struct {
	Engine   *Engine
	Registry *registry.Registry
	Target   string

	logger zerolog.Logger
}

// NewIsolateAll builds the Behaviors for one IsolateAll job.
func NewIsolateAll(engine *Engine, reg *registry.Registry, target string) *IsolateAll {
	return &IsolateAll{
		Engine:   engine,
		Registry: reg,
		Target:   target,
		logger:   log.WithComponent("isolate-all"),
	}
}

// Start snapshots the currently registered nodes and issues one
// asynchronous Isolate call per node. With zero nodes it finishes
// synchronously within the same reactor turn, matching the "empty fleet"
// scenario's requirement that JobNew be followed immediately by
// JobRemoved.
func (b *IsolateAll) Start(j *Job) {
	nodes := b.Registry.Nodes()
	j.Outstanding = len(nodes)

	if j.Outstanding == 0 {
		b.Engine.FinishJob(j, types.JobResultDone)
		return
	}

	for _, n := range nodes {
		n := n
		go b.callNode(j, n)
	}
}

func (b *IsolateAll) callNode(j *Job, n *registry.Node) {
	ctx, cancel := context.WithTimeout(context.Background(), IsolateTimeout)
	defer cancel()

	timer := metrics.NewTimer()
	err := n.Conn.Call(ctx, registry.NodeCallObjectPath, registry.NodeCallInterface, "Isolate", []string{b.Target}, nil)

	b.Engine.reactor.Post(func() {
		b.handleReply(j, n, err, timer)
	})
}

func (b *IsolateAll) handleReply(j *Job, n *registry.Node, err error, timer *metrics.Timer) {
	if j.State == types.JobStateFinished {
		// Late reply for a job that already finished; discard.
		return
	}
	if err != nil {
		b.logger.Warn().Str("job_id", j.ID).Str("node_name", n.Name).Err(err).Msg("isolate call did not succeed")
		metrics.NodeCallsTotal.WithLabelValues("failure").Inc()
		timer.ObserveDurationVec(metrics.NodeCallDuration, "failure")
	} else {
		metrics.NodeCallsTotal.WithLabelValues("success").Inc()
		timer.ObserveDurationVec(metrics.NodeCallDuration, "success")
	}

	j.Outstanding--
	if j.Outstanding <= 0 {
		b.Engine.FinishJob(j, types.JobResultDone)
	}
}

// Cancel is a no-op in v0; the hook exists for a future implementation
// that tracks per-call cancellation handles.
func (b *IsolateAll) Cancel(j *Job) {}

// Destroy has no variant-specific resources to release.
func (b *IsolateAll) Destroy(j *Job) {}
