// Package events is the player's publish/subscribe channel. Each player owns
// one Bus; components subscribe to it and must unsubscribe on teardown.
package events

import "sync"

// Type names a player event.
type Type string

const (
	// TimeUpdate carries the current playback position in Event.Time (seconds).
	TimeUpdate Type = "timeupdate"
	// Ended fires when playback reaches the end of the media.
	Ended Type = "ended"
	// ContentRatingFlagged fires when the video is age restricted for the viewer.
	ContentRatingFlagged Type = "contentratingflagged"
	// Complete fires when the video is marked complete. Event.Time is the
	// playback position that triggered it, if any.
	Complete Type = "complete"
	// CaptionChanged carries the newly active caption in Event.Index and Event.Text.
	CaptionChanged Type = "captionchanged"
	// Destroy fires once when the player is torn down.
	Destroy Type = "destroy"
)

// Event is a single notification delivered to subscribers.
type Event struct {
	Type  Type
	Time  float64
	Index int
	Text  string
}

// Handler receives events.
type Handler func(Event)

// Unsubscribe detaches a handler. Calling it more than once is a no-op.
type Unsubscribe func()

type subscription struct {
	id      uint64
	handler Handler
}

// Bus delivers events synchronously, in subscription order.
type Bus struct {
	mutex    sync.RWMutex
	nextID   uint64
	handlers map[Type][]subscription
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Type][]subscription)}
}

// Subscribe attaches h to events of type t.
func (b *Bus) Subscribe(t Type, h Handler) Unsubscribe {
	b.mutex.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[t] = append(b.handlers[t], subscription{id: id, handler: h})
	b.mutex.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(t, id) })
	}
}

func (b *Bus) remove(t Type, id uint64) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	subs := b.handlers[t]
	for i, s := range subs {
		if s.id == id {
			// Copy so snapshots taken by Publish stay intact.
			next := make([]subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.handlers, t)
			} else {
				b.handlers[t] = next
			}
			return
		}
	}
}

// Publish delivers e to the handlers subscribed when the call began.
// Handlers may subscribe or unsubscribe while being called.
func (b *Bus) Publish(e Event) {
	b.mutex.RLock()
	subs := b.handlers[e.Type]
	b.mutex.RUnlock()

	for _, s := range subs {
		s.handler(e)
	}
}

// Count returns the number of handlers attached to t.
func (b *Bus) Count(t Type) int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.handlers[t])
}
