// Package notify is an ordered multicast callback list shared by marshalers
// and bindable properties.
package notify

import (
	"sync"
)

// List runs its handlers in subscription order. Handlers run outside the
// lock, so they may subscribe or cancel from inside a callback. The zero
// value is ready to use.
type List[T any] struct {
	mu       sync.Mutex
	next     uint64
	handlers map[uint64]func(T)
	order    []uint64
}

// Subscribe adds fn. The returned cancel is safe to call more than once.
func (l *List[T]) Subscribe(fn func(T)) (cancel func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.handlers == nil {
		l.handlers = make(map[uint64]func(T))
	}
	l.next++
	id := l.next
	l.handlers[id] = fn
	l.order = append(l.order, id)

	var once sync.Once
	return func() {
		once.Do(func() { l.remove(id) })
	}
}

func (l *List[T]) remove(id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.handlers, id)
	for i, v := range l.order {
		if v == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

// Notify calls every handler subscribed at the time of the call with v.
func (l *List[T]) Notify(v T) {
	l.mu.Lock()
	fns := make([]func(T), 0, len(l.order))
	for _, id := range l.order {
		fns = append(fns, l.handlers[id])
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// Len returns the number of active handlers.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.order)
}

// Clear drops every handler.
func (l *List[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.handlers = nil
	l.order = nil
}
