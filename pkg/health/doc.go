// Package health serves the /healthz and /readyz HTTP endpoints a process
// supervisor polls. There is no Raft leader to wait on here, so readiness
// reports the current node count instead of cluster membership state.
package health
