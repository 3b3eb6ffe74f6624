package coordinator

import (
	"log"
	"sync/atomic"
	"time"
)

// EventEmitter provides thread-safe event emission for the engine.
// Subscribers drain the channel; under sustained backpressure events are
// dropped rather than blocking the run loop.
type EventEmitter struct {
	events       chan CoordinationEvent
	droppedCount atomic.Uint64
}

// NewEventEmitter creates an EventEmitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{
		events: make(chan CoordinationEvent, bufferSize),
	}
}

// Emit sends an event. If the channel is full, it retries with a short
// timeout before dropping the event.
func (e *EventEmitter) Emit(event CoordinationEvent) {
	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 { // Log every 10th drop to avoid spam
			log.Printf("[coordinator] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the total number of dropped events.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns a read-only channel of events for subscribers.
func (e *EventEmitter) Events() <-chan CoordinationEvent {
	return e.events
}

// Close closes the events channel. Call only after all runs have finished.
func (e *EventEmitter) Close() {
	close(e.events)
}
