// Package binding keeps application properties and memory marshalers in
// sync in both directions.
package binding

import (
	"sync"

	"livemem/internal/notify"
	"livemem/pod"
)

// Property is the capability a bindable field exposes. Subscribe must only
// report actual changes.
type Property[T any] interface {
	Name() string
	Get() T
	Set(T)
	Subscribe(func(T)) (cancel func())
}

// Object is implemented by owners that expose properties by name.
// Property returns the Property[T] value for name.
type Object interface {
	Property(name string) (any, bool)
}

// Cell is the memory side of a binding. *marshal.Marshaler[T] is a Cell.
type Cell[T any] interface {
	Value() (T, bool)
	Read() (T, error)
	Write(T) error
	OnChanged(func(T)) (cancel func())
	OnDisposing(func()) (cancel func())
}

// Value is an observable property holding a T.
type Value[T comparable] struct {
	name string
	mu   sync.RWMutex
	v    T
	subs notify.List[T]
}

var _ Property[int] = (*Value[int])(nil)

func NewValue[T comparable](name string, initial T) *Value[T] {
	return &Value[T]{name: name, v: initial}
}

func (p *Value[T]) Name() string { return p.name }

func (p *Value[T]) Get() T {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.v
}

// Set stores v and notifies subscribers if it differs from the current
// value. Values are compared by memory image, so a NaN equals itself.
func (p *Value[T]) Set(v T) {
	p.mu.Lock()
	if pod.Equal(p.v, v) {
		p.mu.Unlock()
		return
	}
	p.v = v
	p.mu.Unlock()

	p.subs.Notify(v)
}

func (p *Value[T]) Subscribe(fn func(T)) (cancel func()) {
	return p.subs.Subscribe(fn)
}

// Subscribers returns the number of active subscriptions.
func (p *Value[T]) Subscribers() int {
	return p.subs.Len()
}
