package metrics

import (
	"time"

	"github.com/cuemby/fleetd/pkg/registry"
)

// jobQueueStats is the minimal view of the job engine the collector needs;
// kept as an interface so this package doesn't have to import pkg/job (and
// pkg/job can in turn import this package to instrument job completions
// directly without a cycle).
type jobQueueStats interface {
	QueueDepth() int
}

// Collector periodically samples the registry and job engine's live state
// into the package's gauges, in the manner of a ticking sidecar rather
// than instrumenting every call site directly.
type Collector struct {
	reg    *registry.Registry
	engine jobQueueStats
	stopCh chan struct{}
}

// NewCollector creates a metrics Collector observing reg and engine.
func NewCollector(reg *registry.Registry, engine jobQueueStats) *Collector {
	return &Collector{
		reg:    reg,
		engine: engine,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting on a 15-second tick.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	NodesTotal.WithLabelValues("registered").Set(float64(len(c.reg.Nodes())))
	NodesTotal.WithLabelValues("connected").Set(float64(c.reg.Count()))
	JobQueueDepth.Set(float64(c.engine.QueueDepth()))
}
