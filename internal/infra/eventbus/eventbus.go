// Package eventbus is a small in-memory publish/subscribe bus. The front
// door publishes task audit events on it and the ingestion pipeline
// announces corpus updates; consumers run their own loops.
//
// Publish never blocks: when a subscriber's buffer is full the event is
// dropped. Events are fire-and-forget, nothing is persisted.
package eventbus

import "sync"

// Topics published by this service.
const (
	TopicTaskInvoked     = "task.invoked"
	TopicIngestCompleted = "ingest.completed"
)

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// EventBus is the interface for publishing and subscribing to topics.
type EventBus interface {
	Publish(topic string, payload any)
	Subscribe(topic string) <-chan Event
}

const subscriberBuffer = 100

// Bus is the in-memory EventBus implementation.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{subscribers: make(map[string][]chan Event)}
}

// Subscribe registers a subscriber for topic and returns its read-only
// channel. The caller owns the consumption loop; an unconsumed channel
// eventually causes events to be dropped, never a blocked publisher.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()
	return ch
}

// Publish delivers an Event to every subscriber of topic, dropping it for
// any subscriber whose buffer is full.
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload}
	b.mu.RLock()
	subs := b.subscribers[topic]
	b.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			// full buffer, drop
		}
	}
}
