package marshal

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/sony/gobreaker"

	"livemem/internal/notify"
	"livemem/offset"
	"livemem/pod"
	"livemem/process"
)

type errBox struct{ err error }

// Marshaler is a live typed handle on one value in foreign memory. The
// scheduler re-reads it every tick and fires OnChanged when the value
// differs from the cached snapshot. A Marshaler must be closed exactly once
// when no longer needed; use With for scoped access.
type Marshaler[T comparable] struct {
	session *Session
	id      uint64
	off     offset.Offset
	size    process.ProcessMemorySize
	log     *logger.Logger
	breaker *gobreaker.CircuitBreaker

	base        atomic.Pointer[offset.BaseOffset]
	value       atomic.Pointer[T]
	addr        atomic.Uint64
	invalidTick atomic.Uint64 // tick+1 of the last tick that proved the address invalid
	lastErr     atomic.Pointer[errBox]
	disposed    atomic.Bool

	changed   notify.List[T]
	disposing notify.List[struct{}]
}

// Acquire creates a marshaler for off, rooted at base's anchor or at the
// module base when base is nil, and registers it with the scheduler.
// T must be plain data.
func Acquire[T comparable](s *Session, off offset.Offset, base *offset.BaseOffset) (*Marshaler[T], error) {
	if err := pod.Check[T](); err != nil {
		return nil, fmt.Errorf("marshaler %s: %w", off, err)
	}

	m := &Marshaler[T]{
		session: s,
		off:     off,
		size:    pod.SizeOf[T](),
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "marshal-"+off.String())),
	}
	if base != nil {
		b := *base
		m.base.Store(&b)
	}
	m.breaker = newBreaker("marshal-"+off.String(), s.opts, m.log)

	id, err := s.register(m)
	if err != nil {
		return nil, err
	}
	m.id = id
	return m, nil
}

// AcquireTyped is Acquire for an offset already tagged with T.
func AcquireTyped[T comparable](s *Session, off offset.Typed[T], base *offset.BaseOffset) (*Marshaler[T], error) {
	return Acquire[T](s, off.Offset, base)
}

// With acquires a marshaler, passes it to fn and closes it on every exit
// path, including a panic in fn.
func With[T comparable](s *Session, off offset.Offset, base *offset.BaseOffset, fn func(*Marshaler[T]) error) error {
	m, err := Acquire[T](s, off, base)
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}

// newBreaker trips after opts.BreakerFailures consecutive memory access
// failures. Invalid addresses are expected while entities come and go and
// do not count.
func newBreaker(name string, opts Options, log *logger.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, process.ErrMemoryAccess)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(fmt.Sprintf("breaker %s: %s -> %s", name, from, to))
		},
	})
}

func (m *Marshaler[T]) Offset() offset.Offset { return m.off }

// Base returns the current base offset, or nil for module-relative offsets.
func (m *Marshaler[T]) Base() *offset.BaseOffset {
	return m.base.Load()
}

// Address returns the most recently resolved address, 0 if none.
func (m *Marshaler[T]) Address() process.ProcessMemoryAddress {
	return process.ProcessMemoryAddress(m.addr.Load())
}

// Err returns the error recorded by the most recent tick, nil on success.
func (m *Marshaler[T]) Err() error {
	if box := m.lastErr.Load(); box != nil {
		return box.err
	}
	return nil
}

// Disposed reports whether Close has been called.
func (m *Marshaler[T]) Disposed() bool {
	return m.disposed.Load()
}

// Value returns the cached snapshot and whether one exists yet.
func (m *Marshaler[T]) Value() (T, bool) {
	if v := m.value.Load(); v != nil {
		return *v, true
	}
	var zero T
	return zero, false
}

// OnChanged registers fn to run with each new value.
func (m *Marshaler[T]) OnChanged(fn func(T)) (cancel func()) {
	return m.changed.Subscribe(fn)
}

// OnDisposing registers fn to run once, when the marshaler is closed.
func (m *Marshaler[T]) OnDisposing(fn func()) (cancel func()) {
	return m.disposing.Subscribe(func(struct{}) { fn() })
}

// Rebase points the marshaler at a new entity base. The next read resolves
// from scratch.
func (m *Marshaler[T]) Rebase(base *offset.BaseOffset) {
	if base == nil {
		m.base.Store(nil)
	} else {
		b := *base
		m.base.Store(&b)
	}
	m.addr.Store(0)
	m.invalidTick.Store(0)
}

func (m *Marshaler[T]) resolve(tick uint64) (process.ProcessMemoryAddress, error) {
	addr, err := m.session.Resolve(m.base.Load(), m.off)
	if err != nil {
		if errors.Is(err, process.ErrInvalidAddress) {
			m.invalidTick.Store(tick + 1)
		}
		return 0, err
	}
	m.addr.Store(uint64(addr))
	return addr, nil
}

// guarded runs fn through the breaker. An open breaker reads as a memory
// access failure.
func (m *Marshaler[T]) guarded(fn func() (interface{}, error)) (interface{}, error) {
	v, err := m.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %s suspended: %w", process.ErrMemoryAccess, m.off, err)
	}
	return v, err
}

func (m *Marshaler[T]) read(tick uint64) (T, error) {
	var zero T

	v, err := m.guarded(func() (interface{}, error) {
		addr, err := m.resolve(tick)
		if err != nil {
			return nil, err
		}

		data, err := m.session.ReadMemory(addr, m.size)
		if err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: read %s at %s: %w", process.ErrMemoryAccess, m.off, addr.ToString(), err)
		}
		return pod.Decode[T](data)
	})
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

// Read reads the live value. It does not touch the snapshot; change
// notifications only come from the scheduler.
func (m *Marshaler[T]) Read() (T, error) {
	var zero T
	if m.disposed.Load() {
		return zero, ErrDisposed
	}
	if !m.session.liveness() {
		return zero, errProcessGone()
	}
	return m.read(m.session.TickID())
}

// Write encodes v at the resolved address. It is refused when the process
// is gone or when a read in the current tick proved the address invalid. On
// success the snapshot becomes v so the next tick does not report it as a
// change.
func (m *Marshaler[T]) Write(v T) error {
	if m.disposed.Load() {
		return ErrDisposed
	}
	if !m.session.liveness() {
		return fmt.Errorf("write %s dropped: %w", m.off, errProcessGone())
	}

	tick := m.session.TickID()
	if m.session.InTick() && m.invalidTick.Load() == tick+1 {
		return fmt.Errorf("%w: %s in tick %d", ErrStaleAddress, m.off, tick)
	}

	_, err := m.guarded(func() (interface{}, error) {
		addr, err := m.resolve(tick)
		if err != nil {
			return nil, err
		}

		if err := m.session.WriteMemory(addr, pod.Encode(v)); err != nil {
			if errors.Is(err, ErrSessionClosed) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: write %s at %s: %w", process.ErrMemoryAccess, m.off, addr.ToString(), err)
		}
		return nil, nil
	})
	if err != nil {
		m.log.Debugln("write failed:", err)
		return err
	}

	m.value.Store(&v)
	return nil
}

func (m *Marshaler[T]) setErr(err error) {
	if err == nil {
		m.lastErr.Store(nil)
		return
	}
	m.lastErr.Store(&errBox{err: err})
}

// refresh is called by the scheduler once per tick.
func (m *Marshaler[T]) refresh(tick uint64, alive bool) {
	if m.disposed.Load() {
		return
	}
	if !alive {
		m.setErr(errProcessGone())
		return
	}

	old := m.value.Load()
	v, err := m.read(tick)
	m.setErr(err)
	if err != nil {
		m.log.Debugln("tick", tick, "read failed:", err)
		return
	}

	if m.publish(old, v) {
		m.changed.Notify(v)
	}
}

// publish replaces the snapshot old with v when v differs by memory image.
// It reports false when nothing changed or when a Write stored a newer
// snapshot while v was being read.
func (m *Marshaler[T]) publish(old *T, v T) bool {
	if old != nil && pod.Equal(*old, v) {
		return false
	}
	return m.value.CompareAndSwap(old, &v)
}

// Close unregisters the marshaler and fires OnDisposing. Further calls are
// no-ops.
func (m *Marshaler[T]) Close() error {
	if !m.disposed.CompareAndSwap(false, true) {
		return nil
	}

	m.session.unregister(m.id)
	m.disposing.Notify(struct{}{})
	m.disposing.Clear()
	m.changed.Clear()
	return nil
}

// BreakerState reports the failure breaker's state.
func (m *Marshaler[T]) BreakerState() gobreaker.State {
	return m.breaker.State()
}
