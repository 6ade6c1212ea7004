package events

import (
	"github.com/kelindar/event"
)

// Bus delivers relay events to in-process subscribers. Publishing never
// blocks on a slow subscriber's channel; see SubscribeToChannel.
type Bus struct {
	dispatcher *event.Dispatcher
	publishers map[uint32]func(Event)
}

// New creates a bus that knows every event type in this package.
func New() *Bus {
	b := &Bus{
		dispatcher: event.NewDispatcher(),
		publishers: make(map[uint32]func(Event)),
	}
	register[CaptureSuccessEvent](b)
	register[CaptureErrorEvent](b)
	register[StreamStartedEvent](b)
	register[StreamEndedEvent](b)
	register[TranscoderExitedEvent](b)
	register[SourceChangedEvent](b)
	register[LogEntryEvent](b)
	return b
}

// register binds T's type id to a typed kelindar/event publish.
func register[T Event](b *Bus) {
	var zero T
	b.publishers[zero.Type()] = func(ev Event) {
		if e, ok := ev.(T); ok {
			event.Publish(b.dispatcher, e)
		}
	}
}

// Publish delivers ev to the subscribers of its concrete type.
// A nil bus and unregistered types are ignored.
func (b *Bus) Publish(ev Event) {
	if b == nil || ev == nil {
		return
	}
	if publish, ok := b.publishers[ev.Type()]; ok {
		publish(ev)
	}
}

// On subscribes handler to events of type T and returns the unsubscribe func.
//
//	unsub := events.On(bus, func(e events.StreamEndedEvent) { ... })
func On[T Event](b *Bus, handler func(T)) func() {
	if b == nil {
		return func() {}
	}
	return event.Subscribe(b.dispatcher, handler)
}

// SubscribeToChannel forwards events of type T into ch for a select loop.
// An event is dropped when ch is full.
func SubscribeToChannel[T Event](b *Bus, ch chan<- any) func() {
	return On(b, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
