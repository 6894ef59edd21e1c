/*
Package metrics defines and registers fleetd's Prometheus metrics and
exposes them over HTTP for scraping.

Gauges and counters are package-level vars, registered once in init, so any
package can observe into them directly (pkg/job bumps JobsTotal and
NodeCallsTotal as jobs finish and nodes reply, timing each per-node call
with a Timer). Collector instead samples point-in-time state — node count,
queue depth — on a ticker, for values that are cheaper to poll than to
instrument at every call site.

	metrics.JobsTotal.WithLabelValues(string(result)).Inc()
	http.Handle("/metrics", metrics.Handler())

	timer := metrics.NewTimer()
	// ... do the work ...
	timer.ObserveDurationVec(metrics.NodeCallDuration, "success")
*/
package metrics
