// Package events broadcasts progress to in-process subscribers through a
// kelindar/event dispatcher.
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting. Delivery is
// asynchronous; each subscriber sees events in publish order.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case ProgressEvent:
		event.Publish(b.dispatcher, e)
	case SearchProgressEvent:
		event.Publish(b.dispatcher, e)
	case FileCompleteEvent:
		event.Publish(b.dispatcher, e)
	case BatchStartedEvent:
		event.Publish(b.dispatcher, e)
	case BatchCompleteEvent:
		event.Publish(b.dispatcher, e)
	case WarningEvent:
		event.Publish(b.dispatcher, e)
	case ErrorEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type selects the events it receives. Returns an unsubscribe
// function; unknown handler types get a no-op.
// Usage: unsub := bus.Subscribe(func(e ProgressEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(ProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SearchProgressEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FileCompleteEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BatchStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(BatchCompleteEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(WarningEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ErrorEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

