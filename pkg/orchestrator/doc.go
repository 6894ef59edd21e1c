/*
Package orchestrator ties the reactor, registry, and job engine together
into the process-wide facade (C5) exposed on the public bus: the
IsolateAll method, and the JobNew/JobRemoved/PropertiesChanged signals
fanned out to every connected public client.

Orchestrator is the only component that knows both "internal job lifecycle
event" and "bus signal" — the job engine calls back into it with plain Go
values (a *job.Job), and it is Orchestrator's job to marshal those into
signal frames and broadcast them to whichever clients are currently
connected to the public listener. Node connections and public-client
connections are accepted on two separate listeners sharing one reactor,
so job scheduling, node registration, and client signal delivery never race
each other.
*/
package orchestrator
