package vcompress

import (
	"sync"

	"github.com/five82/vcompress/internal/events"
)

// Event is any value delivered to an EventHandler. Switch on the concrete
// type to handle the ones you care about.
type Event = events.Event

// Event types
type (
	ProgressEvent       = events.ProgressEvent
	SearchProgressEvent = events.SearchProgressEvent
	FileCompleteEvent   = events.FileCompleteEvent
	BatchStartedEvent   = events.BatchStartedEvent
	BatchCompleteEvent  = events.BatchCompleteEvent
	WarningEvent        = events.WarningEvent
	ErrorEvent          = events.ErrorEvent
)

// EventHandler receives events. A handler passed to Compress or
// CompressBatch is called synchronously and never concurrently; one passed
// to Subscribe is called from a dispatcher goroutine.
type EventHandler func(Event)

// handlerPublisher serializes calls into an EventHandler.
func handlerPublisher(handler EventHandler) events.PublisherFunc {
	var mu sync.Mutex
	return func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		handler(e)
	}
}

// subscribeAll registers handler for every event type on bus. Calls are
// serialized, so handler does not need its own locking.
func subscribeAll(bus *events.Bus, handler EventHandler) func() {
	h := handlerPublisher(handler)
	unsubs := []func(){
		bus.Subscribe(func(e ProgressEvent) { h(e) }),
		bus.Subscribe(func(e SearchProgressEvent) { h(e) }),
		bus.Subscribe(func(e FileCompleteEvent) { h(e) }),
		bus.Subscribe(func(e BatchStartedEvent) { h(e) }),
		bus.Subscribe(func(e BatchCompleteEvent) { h(e) }),
		bus.Subscribe(func(e WarningEvent) { h(e) }),
		bus.Subscribe(func(e ErrorEvent) { h(e) }),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
