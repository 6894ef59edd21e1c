package events

import (
	"sync"
	"time"
)

// EventType represents the type of a fleet event.
type EventType string

const (
	EventNodeRegistered   EventType = "node.registered"
	EventNodeDisconnected EventType = "node.disconnected"
	EventJobQueued        EventType = "job.queued"
	EventJobStarted       EventType = "job.started"
	EventJobFinished      EventType = "job.finished"
)

// NodePayload carries the node identity behind a node.registered or
// node.disconnected event.
type NodePayload struct {
	Name       string
	ObjectPath string
}

// JobPayload carries the job identity and, once finished, the result
// behind a job.queued, job.started or job.finished event.
type JobPayload struct {
	ID         string
	ObjectPath string
	Type       string
	Target     string
	Result     string
}

// Event represents a single fleet event. Payload holds a NodePayload or a
// JobPayload depending on Type; subscribers type-switch on it rather than
// parsing a free-form message string.
type Event struct {
	ID        string
	Type      EventType
	Timestamp time.Time
	Payload   any
}

// Subscriber is a channel that receives events.
type Subscriber chan *Event

// Broker manages event subscriptions and distribution.
type Broker struct {
	subscribers map[Subscriber]bool
	mu          sync.RWMutex
	eventCh     chan *Event
	stopCh      chan struct{}
}

// NewBroker creates a new event broker.
func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[Subscriber]bool),
		eventCh:     make(chan *Event, 100),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the broker's event distribution loop.
func (b *Broker) Start() {
	go b.run()
}

// Stop stops the broker.
func (b *Broker) Stop() {
	close(b.stopCh)
}

// Subscribe creates a new subscription and returns a channel.
func (b *Broker) Subscribe() Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(Subscriber, 50)
	b.subscribers[sub] = true
	return sub
}

// Unsubscribe removes a subscription.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subscribers, sub)
	close(sub)
}

// Publish publishes an event to all subscribers.
func (b *Broker) Publish(event *Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.eventCh <- event:
	case <-b.stopCh:
	}
}

func (b *Broker) run() {
	for {
		select {
		case event := <-b.eventCh:
			b.broadcast(event)
		case <-b.stopCh:
			return
		}
	}
}

func (b *Broker) broadcast(event *Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
