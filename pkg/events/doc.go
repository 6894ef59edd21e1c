/*
Package events implements fleetd's internal publish/subscribe broker.

The Broker decouples the components that notice something happened (the
registry when a node registers or drops, the job engine when a job is
queued, starts or finishes) from the components that care (in the running
daemon, the audit-log consumer in cmd/fleetd). Bus signals to public
clients do not go through the Broker; the job engine's callbacks drive
them directly. Publishers
never block on slow subscribers: Publish enqueues onto a buffered internal
channel and a single goroutine fans each event out to every subscriber's own
buffered channel, dropping on a full subscriber buffer rather than stalling
the broadcast loop.

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	defer broker.Unsubscribe(sub)

	broker.Publish(&events.Event{
		Type:    events.EventNodeRegistered,
		Payload: events.NodePayload{Name: "worker-3", ObjectPath: "/org/fleetd/nodes/worker-3"},
	})

Event ordering is preserved per-broker (one dispatch goroutine, one source
channel) but not guaranteed across subscribers racing to drain their own
channels. A subscriber that never reads is eventually just a subscriber that
misses events, not one that stalls the others.
*/
package events
