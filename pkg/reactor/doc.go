// Package reactor implements the single-threaded cooperative event loop
// every other fleetd component runs on top of. One goroutine, started by
// Run, drains a task queue fed by Post; nothing outside that goroutine ever
// reads or writes orchestrator state directly, so no component needs a
// mutex. Defer lets a task schedule a follow-up that runs once the current
// task has fully unwound, for state transitions that must not happen in the
// middle of a callback that triggered them.
package reactor
