package job

import (
	"fmt"

	"github.com/cuemby/fleetd/pkg/types"
)

// Behaviors is what a job variant supplies: how to begin work, how to
// respond to a cancellation request, and what variant-specific state to
// release. The engine never inspects a variant's extra fields directly.
type Behaviors interface {
	// Start begins work on the reactor goroutine and returns without
	// blocking; it registers asynchronous calls or deferred follow-ups
	// and declares the job finished later via the engine.
	Start(j *Job)

	// Cancel requests an abort. v0 never calls this with a variant that
	// implements it meaningfully; IsolateAll's Cancel is a no-op.
	Cancel(j *Job)

	// Destroy releases variant-specific resources, if any.
	Destroy(j *Job)
}

// Job is one queued or running orchestration unit. types.Job.Outstanding
// is the fan-out reply counter IsolateAll uses; other variants leave it
// unused.
type Job struct {
	types.Job
	Behaviors Behaviors
}

// ObjectPath computes the public path a job is published at.
func ObjectPath(id string) string {
	return fmt.Sprintf("/org/fleetd/jobs/%s", id)
}
