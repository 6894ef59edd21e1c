package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// NodesTotal counts currently connected nodes by registration status.
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetd_nodes_total",
			Help: "Total number of connected nodes by status",
		},
		[]string{"status"},
	)

	// JobQueueDepth is the number of jobs waiting or running.
	JobQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetd_job_queue_depth",
			Help: "Number of jobs currently queued or running",
		},
	)

	// JobsTotal counts jobs that have finished, by result.
	JobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetd_jobs_total",
			Help: "Total number of finished jobs by result",
		},
		[]string{"result"},
	)

	// JobDuration records how long a job took from start to finish, by
	// result.
	JobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetd_job_duration_seconds",
			Help:    "Job duration in seconds from start to finish, by result",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	// NodeCallsTotal counts per-node Isolate call outcomes.
	NodeCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetd_node_calls_total",
			Help: "Total number of node calls by outcome",
		},
		[]string{"outcome"},
	)

	// NodeCallDuration records how long a single per-node Isolate call
	// took, by outcome.
	NodeCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetd_node_call_duration_seconds",
			Help:    "Per-node Isolate call duration in seconds, by outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(JobQueueDepth)
	prometheus.MustRegister(JobsTotal)
	prometheus.MustRegister(JobDuration)
	prometheus.MustRegister(NodeCallsTotal)
	prometheus.MustRegister(NodeCallDuration)
}

// Handler returns the Prometheus HTTP handler for /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
