package ecs

// EventType identifies world lifecycle events.
type EventType string

const (
	EventSpawned   EventType = "spawned"
	EventDespawned EventType = "despawned"
)

// Event is emitted when an entity's lifecycle changes.
type Event struct {
	Type   EventType
	Entity Entity
}

// EventQueue is a simple FIFO queue.
type EventQueue struct {
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *EventQueue) flush() {
	if q == nil {
		return
	}
	q.items = nil
}
