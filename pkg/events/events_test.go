package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesPublishedEvent(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&Event{Type: EventNodeRegistered, Payload: NodePayload{Name: "node-a"}})

	select {
	case evt := <-sub:
		assert.Equal(t, EventNodeRegistered, evt.Type)
		assert.False(t, evt.Timestamp.IsZero(), "Publish stamps a timestamp when one isn't set")
		payload, ok := evt.Payload.(NodePayload)
		require.True(t, ok, "node events carry a NodePayload")
		assert.Equal(t, "node-a", payload.Name)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive the published event")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(sub)
	require.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub
	assert.False(t, ok, "unsubscribing closes the channel")
}

func TestBroadcastReachesMultipleSubscribers(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	defer b.Unsubscribe(sub1)
	defer b.Unsubscribe(sub2)

	b.Publish(&Event{Type: EventJobQueued})

	for _, sub := range []Subscriber{sub1, sub2} {
		select {
		case evt := <-sub:
			assert.Equal(t, EventJobQueued, evt.Type)
		case <-time.After(time.Second):
			t.Fatal("a subscriber missed the broadcast event")
		}
	}
}

func TestPublishAfterStopDoesNotBlock(t *testing.T) {
	b := NewBroker()
	b.Start()
	b.Stop()

	done := make(chan struct{})
	go func() {
		b.Publish(&Event{Type: EventJobFinished})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked after Stop")
	}
}
