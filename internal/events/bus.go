package events

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Event names emitted by the SDK. One per detection kind (the kind value
// itself is the event name) plus the lifecycle events below.
const (
	Disconnected         = "disconnected"
	MeasurementStarted   = "measurementStarted"
	MeasurementCompleted = "measurementCompleted"
	ManualEntryRequired  = "manualEntryRequired"
)

// Handler receives an event payload. Reading events carry models.Reading,
// lifecycle events carry the detection kind.
type Handler func(payload interface{})

type listener struct {
	id string
	fn Handler
}

// Bus is a synchronous publish/subscribe dispatcher. Listeners for one
// event run in registration order; a panicking listener does not stop
// the rest of the fan-out.
type Bus struct {
	mu        sync.RWMutex
	listeners map[string][]listener
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		listeners: make(map[string][]listener),
	}
}

// On registers fn for the named event and returns a subscription ID for
// use with Off.
func (b *Bus) On(event string, fn Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	b.listeners[event] = append(b.listeners[event], listener{id: id, fn: fn})
	return id
}

// Off removes the subscription with the given ID from the named event.
// Unknown IDs are ignored.
func (b *Bus) Off(event, id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.listeners[event]
	for i, l := range subs {
		if l.id == id {
			b.listeners[event] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Emit delivers payload to every listener registered for event, in
// registration order.
func (b *Bus) Emit(event string, payload interface{}) {
	b.mu.RLock()
	subs := make([]listener, len(b.listeners[event]))
	copy(subs, b.listeners[event])
	b.mu.RUnlock()

	for _, l := range subs {
		dispatch(event, l, payload)
	}
}

func dispatch(event string, l listener, payload interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"event": event,
				"panic": r,
			}).Error("event listener panicked")
		}
	}()
	l.fn(payload)
}

// ListenerCount returns the number of listeners for an event
func (b *Bus) ListenerCount(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[event])
}
