package service

import "sync"

// Event kinds.
const (
	KindDataset   = "dataset"
	KindSelection = "selection"
)

// Event actions.
const (
	ActionLoaded     = "loaded"
	ActionLoadFailed = "load_failed"
	ActionSelected   = "selected"
	ActionReset      = "reset"
)

// Event describes a change to the shared session, with the counts the map
// needs to redraw without another round trip.
type Event struct {
	Kind     string
	Action   string
	Category string // set for ActionSelected
	Cases    int    // cases in the dataset after the change
	Visible  int    // cases drawn on the map after the change
	Err      string // set for ActionLoadFailed
}

// EventBus fans session events out to SSE subscribers. Slow subscribers miss
// events rather than block the publisher.
type EventBus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

// NewEventBus creates an event bus with no subscribers.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish delivers e to every subscriber with room in its buffer. A nil bus
// drops the event.
func (b *EventBus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a buffered channel for future events.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes ch and closes it. Repeated calls are no-ops.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}
