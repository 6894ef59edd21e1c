package types

import (
	"net"
	"time"
)

// Node represents a single accepted connection to the fleet.
type Node struct {
	ID            string // server id, assigned by the registry at accept time
	Name          string // self-reported, unique within the fleet
	ObjectPath    string // public bus path, set once Name is known
	Address       net.Addr
	Status        NodeStatus
	ConnectedAt   time.Time
	LastHeartbeat time.Time
}

// NodeStatus represents the current state of a node's connection.
type NodeStatus string

const (
	NodeStatusConnected    NodeStatus = "connected"
	NodeStatusDisconnected NodeStatus = "disconnected"
)

// JobType enumerates the operations the orchestrator can run against the fleet.
type JobType string

const (
	// JobIsolate runs the isolate operation against a single node.
	JobIsolate JobType = "isolate"

	// JobIsolateAll fans an isolate operation out to every connected node
	// and waits for every node to reply before finishing.
	JobIsolateAll JobType = "isolate-all"
)

// JobState represents where a job is in its lifecycle.
type JobState string

const (
	JobStateWaiting  JobState = "waiting"  // queued, not yet the head of the queue
	JobStateRunning  JobState = "running"  // head of the queue, call in flight
	JobStateFinished JobState = "finished" // result is set, about to be removed
)

// JobResult is the terminal outcome of a finished job. The empty string
// means the job has not finished yet.
type JobResult string

const (
	JobResultDone      JobResult = "done"
	JobResultCancelled JobResult = "cancelled"
	JobResultFailed    JobResult = "failed"
	JobResultTimeout   JobResult = "timeout"
)

// Job represents one queued or running unit of work against the fleet.
type Job struct {
	ID         string
	Type       JobType
	Target     string // node name for JobIsolate, free-form label for JobIsolateAll
	State      JobState
	Result     JobResult
	ObjectPath string
	CreatedAt  time.Time
	StartedAt  time.Time
	FinishedAt time.Time

	// Outstanding counts the number of nodes an IsolateAll job is still
	// waiting on. Unused for single-target jobs.
	Outstanding int
}
