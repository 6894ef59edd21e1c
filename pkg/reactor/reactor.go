package reactor

import (
	"context"

	"github.com/cuemby/fleetd/pkg/log"
)

// task is a unit of work the reactor's goroutine executes in isolation.
type task func()

// Reactor is a single-threaded cooperative event loop. Every state mutation
// in the orchestrator happens on the goroutine that calls Run, by way of
// Post or Defer — no component holds a lock, because no component ever
// touches shared state from any other goroutine.
//
// Defer exists because a callback frame sometimes needs to finish
// unwinding before the state it was triggered by changes underneath it: a
// handler running inside Post can call Defer to schedule a follow-up task
// that runs only after the current task returns, hoisting a state
// transition out of a nested callback frame instead of performing it
// mid-callback.
type Reactor struct {
	tasks   chan task
	pending []task
}

// New creates a Reactor with the given task queue depth.
func New(queueDepth int) *Reactor {
	return &Reactor{
		tasks: make(chan task, queueDepth),
	}
}

// Post enqueues fn to run on the reactor goroutine. Post is safe to call
// from any goroutine, including from within a task already running on the
// reactor.
func (r *Reactor) Post(fn func()) {
	r.tasks <- task(fn)
}

// Defer schedules fn to run after the currently executing task returns,
// before the next task from Post is picked up. Defer must only be called
// from within a task running on the reactor goroutine.
func (r *Reactor) Defer(fn func()) {
	r.pending = append(r.pending, task(fn))
}

// Run drains the task queue until ctx is cancelled. It blocks; callers run
// it on its own goroutine, which becomes "the reactor goroutine" for the
// lifetime of the call.
func (r *Reactor) Run(ctx context.Context) {
	logger := log.WithComponent("reactor")
	logger.Info().Msg("reactor started")
	defer logger.Info().Msg("reactor stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-r.tasks:
			r.runTask(t)
		}
	}
}

// Call runs fn on the reactor goroutine and blocks until it returns. It is
// how a goroutine that isn't the reactor itself — a bus dispatch goroutine
// handling an incoming method call, for instance — touches reactor-owned
// state without racing the reactor loop.
func (r *Reactor) Call(fn func()) {
	done := make(chan struct{})
	r.Post(func() {
		fn()
		close(done)
	})
	<-done
}

func (r *Reactor) runTask(t task) {
	t()
	for len(r.pending) > 0 {
		next := r.pending[0]
		r.pending = r.pending[1:]
		next()
	}
}
