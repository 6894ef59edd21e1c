package job

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/fleetd/pkg/events"
	"github.com/cuemby/fleetd/pkg/log"
	"github.com/cuemby/fleetd/pkg/metrics"
	"github.com/cuemby/fleetd/pkg/reactor"
	"github.com/cuemby/fleetd/pkg/types"
)

// Engine is the FIFO, single-flight job scheduler (C4). Every method runs
// on the reactor goroutine; callers elsewhere use reactor.Call to cross
// over, the same convention the registry uses.
type Engine struct {
	reactor *reactor.Reactor
	broker  *events.Broker
	logger  zerolog.Logger

	queue            []*Job
	current          *Job
	schedulerPending bool
	nextID           uint64

	// OnJobNew and OnJobRemoved let the orchestrator facade turn internal
	// lifecycle transitions into JobNew/JobRemoved signals on the public
	// bus, without the engine knowing anything about bus connections.
	OnJobNew     func(j *Job)
	OnJobRemoved func(j *Job)

	// OnStateChanged fires a PropertiesChanged-equivalent notification
	// whenever a job's State transitions.
	OnStateChanged func(j *Job)
}

// New creates an empty Engine bound to r.
func New(r *reactor.Reactor, broker *events.Broker) *Engine {
	return &Engine{
		reactor: r,
		broker:  broker,
		logger:  log.WithComponent("job-engine"),
	}
}

// QueueJob allocates a fresh id, constructs the job record in the Waiting
// state, appends it to the queue, emits JobNew, and asks the scheduler to
// run. It must be called from the reactor goroutine.
func (e *Engine) QueueJob(jobType types.JobType, target string, behaviors Behaviors) *Job {
	e.nextID++
	id := strconv.FormatUint(e.nextID, 10)

	j := &Job{
		Job: types.Job{
			ID:         id,
			Type:       jobType,
			Target:     target,
			State:      types.JobStateWaiting,
			ObjectPath: ObjectPath(id),
			CreatedAt:  currentTime(),
		},
		Behaviors: behaviors,
	}

	e.queue = append(e.queue, j)
	e.logger.Info().Str("job_id", id).Str("job_type", string(jobType)).Msg("job queued")

	if e.OnJobNew != nil {
		e.OnJobNew(j)
	}
	e.broker.Publish(&events.Event{
		Type:    events.EventJobQueued,
		Payload: events.JobPayload{ID: j.ID, ObjectPath: j.ObjectPath, Type: string(jobType), Target: target},
	})

	e.schedule()
	return j
}

// schedule defers a one-shot start of the queue head, if nothing is
// already running and nothing is already deferred. Deferring rather than
// starting directly means a job that finishes synchronously inside its own
// Start cannot recursively start the next job from within that same call
// stack.
func (e *Engine) schedule() {
	if e.current != nil || e.schedulerPending || len(e.queue) == 0 {
		return
	}
	e.schedulerPending = true
	e.reactor.Defer(e.runScheduledStart)
}

func (e *Engine) runScheduledStart() {
	e.schedulerPending = false

	j := e.queue[0]
	e.current = j
	j.State = types.JobStateRunning
	j.StartedAt = currentTime()

	e.logger.Info().Str("job_id", j.ID).Msg("job started")
	if e.OnStateChanged != nil {
		e.OnStateChanged(j)
	}
	e.broker.Publish(&events.Event{
		Type:    events.EventJobStarted,
		Payload: events.JobPayload{ID: j.ID, ObjectPath: j.ObjectPath, Type: string(j.Type), Target: j.Target},
	})

	j.Behaviors.Start(j)
}

// FinishJob declares j complete with the given result. It must be called
// from the reactor goroutine (directly from within Start if there is no
// outstanding work, or later from a reply callback posted back onto the
// reactor). It asserts j is the currently running job and defers the
// actual bookkeeping so the transition happens at the top of a reactor
// turn rather than inside the caller's own callback frame.
func (e *Engine) FinishJob(j *Job, result types.JobResult) {
	if e.current != j {
		e.logger.Warn().Str("job_id", j.ID).Msg("finish_job called for a job that is not current; ignoring")
		return
	}
	j.Result = result

	e.reactor.Defer(func() {
		e.finishDeferred(j)
	})
}

func (e *Engine) finishDeferred(j *Job) {
	current := e.current
	e.current = nil

	current.State = types.JobStateFinished
	current.FinishedAt = currentTime()

	metrics.JobsTotal.WithLabelValues(string(current.Result)).Inc()
	metrics.JobDuration.WithLabelValues(string(current.Result)).Observe(current.FinishedAt.Sub(current.StartedAt).Seconds())

	e.logger.Info().Str("job_id", current.ID).Str("result", string(current.Result)).Msg("job finished")
	if e.OnStateChanged != nil {
		e.OnStateChanged(current)
	}
	if e.OnJobRemoved != nil {
		e.OnJobRemoved(current)
	}
	e.broker.Publish(&events.Event{
		Type:    events.EventJobFinished,
		Payload: events.JobPayload{ID: current.ID, ObjectPath: current.ObjectPath, Type: string(current.Type), Target: current.Target, Result: string(current.Result)},
	})

	e.removeFromQueue(current)
	current.Behaviors.Destroy(current)

	e.schedule()
}

func (e *Engine) removeFromQueue(j *Job) {
	for i, q := range e.queue {
		if q == j {
			e.queue = append(e.queue[:i], e.queue[i+1:]...)
			return
		}
	}
}

// Current returns the currently running job, or nil if none.
func (e *Engine) Current() *Job {
	return e.current
}

// QueueDepth returns the number of jobs waiting or running.
func (e *Engine) QueueDepth() int {
	return len(e.queue)
}

// currentTime exists so tests and the rest of the package share one seam;
// production code always uses time.Now.
var currentTime = time.Now
