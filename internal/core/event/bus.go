package event

import "reflect"

type envelope struct {
	typ reflect.Type
	ev  any
}

// Bus queues gameplay events (kills, broken obstacles) for the next tick.
// Events emitted in tick N are delivered in tick N+1, in the order they were
// emitted, so every subscriber sees this tick's final world state. Owned by
// the game loop goroutine; subscribe during boot.
type Bus struct {
	front    []envelope
	back     []envelope
	handlers map[reflect.Type][]func(any)
}

func NewBus() *Bus {
	return &Bus{
		front:    make([]envelope, 0, 32),
		back:     make([]envelope, 0, 32),
		handlers: make(map[reflect.Type][]func(any)),
	}
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues ev for the next dispatch.
func Emit[T any](b *Bus, ev T) {
	b.back = append(b.back, envelope{typ: typeOf[T](), ev: ev})
}

// Subscribe registers fn for events of type T. Handlers of one type run in
// subscription order.
func Subscribe[T any](b *Bus, fn func(T)) {
	t := typeOf[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// SwapBuffers makes last tick's events current. Events emitted from here on,
// including from handlers, wait for the next swap.
func (b *Bus) SwapBuffers() {
	clear(b.front)
	b.front, b.back = b.back, b.front[:0]
}

// DispatchAll delivers the current events and returns how many there were.
func (b *Bus) DispatchAll() int {
	for _, e := range b.front {
		for _, h := range b.handlers[e.typ] {
			h(e.ev)
		}
	}
	return len(b.front)
}
