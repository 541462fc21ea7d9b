// Package eventbus carries allocation, strategy and population events from the
// allocation service to collectors such as metrics sinks.
package eventbus

// Event represents an arbitrary event passed on the bus.
type Event any

// EventBus is the untyped bus used by the allocation service.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus.
type Bus = TypedBus[Event]

// New creates a new Bus.
func New(size ...int) *Bus { return NewTyped[Event](size...) }

var _ EventBus = (*Bus)(nil)
