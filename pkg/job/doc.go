/*
Package job implements the FIFO, single-flight job engine (C4): the job
record, the queue, the two-deferral scheduler, and the IsolateAll variant
that fans a call out to every connected node.

At most one job is Running at a time. Queueing a job (QueueJob) appends it
and emits JobNew; a deferred task promotes the head to Running once nothing
else is running; a job declares itself done by calling FinishJob, which
defers the actual teardown (JobRemoved, dequeue, schedule the next job).
Both deferrals exist so that a job finishing from inside another job's
Start callback never recurses into starting the next job mid-stack — the
transition always happens at the top of a fresh reactor turn.

A job variant implements Behaviors; the engine never looks at a variant's
extra fields. IsolateAll is the only variant defined so far: it snapshots
the registry's node list, issues one asynchronous Isolate call per node on
its own goroutine (Conn.Call blocks), and posts each outcome back onto the
reactor to decrement a shared counter.
*/
package job
