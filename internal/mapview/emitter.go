package mapview

import (
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

// Event is a boundary change raised after a draw, edit or delete commit.
// Vertices is the shape's outer ring in [lat, lon] form; it is empty
// (never nil) for a cleared boundary.
type Event struct {
	Kind     domain.BoundaryEventKind `json:"kind"`
	Vertices []domain.LatLng          `json:"vertices"`
}

// Emitter fans boundary events out to callbacks and channel subscribers.
// Delivery never blocks the caller: a subscriber whose buffer is full
// misses the event.
type Emitter struct {
	mu       sync.Mutex
	handlers []func(Event)
	subs     map[int]chan Event
	nextID   int
	closed   bool
	dropped  atomic.Uint64
}

// NewEmitter returns an emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[int]chan Event)}
}

// OnChange registers a callback invoked for every event.
func (e *Emitter) OnChange(fn func(Event)) {
	if fn == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.handlers = append(e.handlers, fn)
}

// Subscribe returns a channel receiving every event and a function that
// stops the subscription. The channel is closed on cancel or Close.
func (e *Emitter) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	e.nextID++
	id := e.nextID
	e.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if c, ok := e.subs[id]; ok {
				delete(e.subs, id)
				close(c)
			}
		})
	}
}

// Emit delivers ev to every callback and subscriber.
func (e *Emitter) Emit(ev Event) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	for _, ch := range e.subs {
		select {
		case ch <- copyEvent(ev):
		default:
			e.dropped.Add(1)
		}
	}
	handlers := slices.Clone(e.handlers)
	e.mu.Unlock()

	for _, fn := range handlers {
		e.call(fn, copyEvent(ev))
	}
}

func (e *Emitter) call(fn func(Event), ev Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("boundary change handler panicked", "kind", ev.Kind, "panic", r)
		}
	}()
	fn(ev)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (e *Emitter) Dropped() uint64 {
	return e.dropped.Load()
}

// Close stops delivery and closes every subscriber channel.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, ch := range e.subs {
		delete(e.subs, id)
		close(ch)
	}
	e.handlers = nil
}

func copyEvent(ev Event) Event {
	return Event{Kind: ev.Kind, Vertices: append(make([]domain.LatLng, 0, len(ev.Vertices)), ev.Vertices...)}
}
