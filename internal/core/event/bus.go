package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events are delivered when the
// dispatch system calls SwapBuffers and DispatchAll; anything emitted after
// that waits for the next frame. Emit may be called from any goroutine;
// dispatch happens on the game loop only.
type Bus struct {
	mu       sync.Mutex // protects back and handlers
	front    []queued
	back     []queued
	handlers map[reflect.Type][]any
}

// queued keeps emission order across event types, so a Tick emitted after
// a batch of EntityAdded is also delivered after them.
type queued struct {
	t  reflect.Type
	ev any
}

func NewBus() *Bus {
	return &Bus{
		front:    make([]queued, 0, 64),
		back:     make([]queued, 0, 64),
		handlers: make(map[reflect.Type][]any),
	}
}

// Emit queues an event into the back buffer.
func Emit[T any](b *Bus, event T) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.mu.Lock()
	b.back = append(b.back, queued{t: t, ev: event})
	b.mu.Unlock()
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := reflect.TypeOf((*T)(nil)).Elem()
	b.handlers[t] = append(b.handlers[t], fn)
}

// SwapBuffers rotates back→front and clears the new back buffer.
// Called once at frame start.
func (b *Bus) SwapBuffers() {
	b.mu.Lock()
	b.front, b.back = b.back, b.front[:0]
	b.mu.Unlock()
}

// DispatchAll delivers all front-buffer events, in emission order, to
// their subscribed handlers.
func (b *Bus) DispatchAll() {
	for _, q := range b.front {
		b.mu.Lock()
		handlers := b.handlers[q.t]
		b.mu.Unlock()
		for _, h := range handlers {
			callHandler(h, q.ev)
		}
	}
}

// Pending returns how many events wait in the back buffer.
func (b *Bus) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.back)
}

func callHandler(handler any, event any) {
	reflect.ValueOf(handler).Call([]reflect.Value{reflect.ValueOf(event)})
}
