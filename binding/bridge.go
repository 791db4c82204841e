package binding

import (
	"fmt"
	"sync"
	"sync/atomic"

	"livemem/internal/notify"
	"livemem/pod"
)

const (
	idle int32 = iota
	fromMemory
	toMemory
)

type errBox struct{ err error }

// Bridge mirrors one Cell into one Property and back. It references its
// owner only by Handle.
type Bridge[T comparable] struct {
	registry *Registry
	handle   Handle
	prop     Property[T]
	cell     Cell[T]

	// direction is the single in-flight propagation direction; inflight is
	// the value being pushed into the property while direction is fromMemory.
	direction atomic.Int32
	inflight  atomic.Pointer[T]

	detached atomic.Bool
	mu       sync.Mutex
	cancels  []func()

	lastErr atomic.Pointer[errBox]
	onError notify.List[error]
}

// Bind connects prop on the owner behind h to cell. The property is set to
// the cell's current value right away. An existing bridge on the same
// (owner, property name) is detached first.
func Bind[T comparable](r *Registry, h Handle, prop Property[T], cell Cell[T]) (*Bridge[T], error) {
	if prop == nil || cell == nil {
		return nil, fmt.Errorf("%w: nil property or cell", ErrBindingContract)
	}

	b := &Bridge[T]{registry: r, handle: h, prop: prop, cell: cell}

	prev, err := r.attach(h, prop.Name(), b)
	if err != nil {
		return nil, err
	}
	if prev != nil {
		prev.Detach()
	}

	if v, ok := cell.Value(); ok {
		b.fromMemory(v)
	} else if v, err := cell.Read(); err == nil {
		b.fromMemory(v)
	} else {
		b.setErr(err)
	}

	b.mu.Lock()
	b.cancels = append(b.cancels,
		cell.OnChanged(b.fromMemory),
		prop.Subscribe(b.toMemory),
		cell.OnDisposing(b.Detach),
	)
	b.mu.Unlock()

	// disposed or released while subscribing
	if b.detached.Load() || !r.Valid(h) {
		b.detached.Store(false)
		b.Detach()
		return nil, fmt.Errorf("%w: %s %s detached during bind", ErrBindingContract, h, prop.Name())
	}

	r.log.Debugln("bound", h.String(), prop.Name())
	return b, nil
}

// BindNamed looks name up on the owner behind h, which must implement
// Object and return a Property[T] for it.
func BindNamed[T comparable](r *Registry, h Handle, name string, cell Cell[T]) (*Bridge[T], error) {
	owner, ok := r.Owner(h)
	if !ok {
		return nil, fmt.Errorf("%w: %s is stale", ErrBindingContract, h)
	}

	obj, ok := owner.(Object)
	if !ok {
		return nil, fmt.Errorf("%w: owner %T exposes no properties", ErrBindingContract, owner)
	}

	raw, ok := obj.Property(name)
	if !ok {
		return nil, fmt.Errorf("%w: owner %T has no property %q", ErrBindingContract, owner, name)
	}

	prop, ok := raw.(Property[T])
	if !ok {
		var zero T
		return nil, fmt.Errorf("%w: property %q is %T, cell holds %T", ErrBindingContract, name, raw, zero)
	}

	return Bind(r, h, prop, cell)
}

// MustBind is Bind that panics on a contract violation.
func MustBind[T comparable](r *Registry, h Handle, prop Property[T], cell Cell[T]) *Bridge[T] {
	b, err := Bind(r, h, prop, cell)
	if err != nil {
		panic(err)
	}
	return b
}

// MustBindNamed is BindNamed that panics on a contract violation.
func MustBindNamed[T comparable](r *Registry, h Handle, name string, cell Cell[T]) *Bridge[T] {
	b, err := BindNamed(r, h, name, cell)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Bridge[T]) Handle() Handle        { return b.handle }
func (b *Bridge[T]) Property() Property[T] { return b.prop }
func (b *Bridge[T]) Detached() bool        { return b.detached.Load() }

// Err returns the last write error, nil after a successful write.
func (b *Bridge[T]) Err() error {
	if box := b.lastErr.Load(); box != nil {
		return box.err
	}
	return nil
}

// OnError registers fn for write failures.
func (b *Bridge[T]) OnError(fn func(error)) (cancel func()) {
	return b.onError.Subscribe(fn)
}

func (b *Bridge[T]) setErr(err error) {
	if err == nil {
		b.lastErr.Store(nil)
		return
	}
	b.lastErr.Store(&errBox{err: err})
}

// live reports whether the bridge may dispatch, detaching it when the
// owner has been released.
func (b *Bridge[T]) live() bool {
	if b.detached.Load() {
		return false
	}
	if !b.registry.Valid(b.handle) {
		b.Detach()
		return false
	}
	return true
}

func (b *Bridge[T]) fromMemory(v T) {
	if !b.live() {
		return
	}
	if !b.direction.CompareAndSwap(idle, fromMemory) {
		return
	}
	b.inflight.Store(&v)
	defer func() {
		b.inflight.Store(nil)
		b.direction.Store(idle)
	}()

	b.prop.Set(v)
}

func (b *Bridge[T]) toMemory(v T) {
	if !b.live() {
		return
	}

	// the property echoing a value this bridge is pushing into it
	if b.direction.Load() == fromMemory {
		if p := b.inflight.Load(); p != nil && pod.Equal(*p, v) {
			return
		}
	}

	if b.direction.CompareAndSwap(idle, toMemory) {
		defer b.direction.Store(idle)
	}

	err := b.cell.Write(v)
	b.setErr(err)
	if err != nil {
		b.registry.log.Warn(fmt.Sprintf("%s %s: write failed: %v", b.handle, b.prop.Name(), err))
		b.onError.Notify(err)
	}
}

// Detach stops both directions of propagation. It is safe to call more
// than once and from inside a callback.
func (b *Bridge[T]) Detach() {
	if !b.detached.CompareAndSwap(false, true) {
		return
	}

	b.mu.Lock()
	cancels := b.cancels
	b.cancels = nil
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	b.registry.forget(b.handle, b.prop.Name(), b)
}
