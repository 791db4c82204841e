// Package marshal turns offsets into live, typed handles on a foreign
// process's memory and keeps them fresh from a single tick loop.
package marshal

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	lru "github.com/hashicorp/golang-lru"

	"livemem/offset"
	"livemem/process"
	"livemem/process/memory_map"
)

// member is anything the scheduler refreshes each tick.
type member interface {
	refresh(tick uint64, alive bool)
	Close() error
}

// Session owns an attached process for the lifetime of an attachment. All
// raw I/O goes through it and is serialized by a single mutex. There is no
// package level state: everything that talks to a process takes a Session.
type Session struct {
	proc process.Process
	opts Options
	log  *logger.Logger

	io    sync.Mutex
	cache *lru.Cache

	tick atomic.Uint64
	// tickOpen is set by a tick and cleared by Scheduler.Stop. While it is
	// clear nothing is cached and liveness is queried live.
	tickOpen atomic.Bool
	alive    atomic.Bool
	closed   atomic.Bool

	mu      sync.Mutex
	nextID  uint64
	members map[uint64]member

	scheduler *Scheduler
}

var _ offset.Memory = (*Session)(nil)

// NewSession wraps an already opened process.
func NewSession(proc process.Process, opts Options) (*Session, error) {
	opts = opts.withDefaults()

	cache, err := lru.New(opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("address cache: %w", err)
	}

	s := &Session{
		proc:    proc,
		opts:    opts,
		cache:   cache,
		members: make(map[uint64]member),
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("session-%d", proc.GetPID()))),
	}
	s.alive.Store(proc.IsAlive())
	s.scheduler = newScheduler(s)

	s.log.Infoln("Session attached, module base", proc.BaseAddress().ToString())
	return s, nil
}

// Attach opens pid through proc and starts a session on it.
func Attach(proc process.Process, pid process.ProcessID, opts Options) (*Session, error) {
	if err := proc.Open(pid); err != nil {
		return nil, fmt.Errorf("attach %d: %w", pid, err)
	}

	s, err := NewSession(proc, opts)
	if err != nil {
		proc.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) Process() process.Process { return s.proc }
func (s *Session) Options() Options         { return s.opts }
func (s *Session) Scheduler() *Scheduler    { return s.scheduler }

// TickID returns the id of the most recent tick; 0 before the first tick.
func (s *Session) TickID() uint64 {
	return s.tick.Load()
}

// Alive returns the liveness snapshot taken by the most recent tick.
func (s *Session) Alive() bool {
	return s.alive.Load()
}

// InTick reports whether a tick is current: one has run and the scheduler
// has not been stopped since. Resolutions are shared only inside a tick.
func (s *Session) InTick() bool {
	return s.tickOpen.Load()
}

// liveness is the tick's snapshot inside a tick and a live query outside.
func (s *Session) liveness() bool {
	if s.tickOpen.Load() {
		return s.alive.Load()
	}
	return s.IsAlive()
}

// IsAlive queries the process directly.
func (s *Session) IsAlive() bool {
	if s.closed.Load() {
		return false
	}
	s.io.Lock()
	defer s.io.Unlock()
	return s.proc.IsAlive()
}

func (s *Session) BaseAddress() process.ProcessMemoryAddress {
	return s.proc.BaseAddress()
}

// IsValidAddress reports whether addr is inside a mapped region.
func (s *Session) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	s.io.Lock()
	defer s.io.Unlock()
	return s.proc.IsValidAddress(addr)
}

// GetMemoryMap refreshes and returns the process memory map.
func (s *Session) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	s.io.Lock()
	defer s.io.Unlock()
	if err := s.proc.UpdateMemoryMap(); err != nil {
		return nil, err
	}
	return s.proc.GetMemoryMap()
}

// ReadMemory is a serialized raw read.
func (s *Session) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	s.io.Lock()
	defer s.io.Unlock()
	return s.proc.ReadMemory(addr, size)
}

// WriteMemory is a serialized raw write.
func (s *Session) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	s.io.Lock()
	defer s.io.Unlock()
	return s.proc.WriteMemory(addr, data)
}

// cached runs resolve unless the key was already resolved this tick.
// Only successes are cached, and only while a tick is current.
func (s *Session) cached(key string, resolve func() (process.ProcessMemoryAddress, error)) (process.ProcessMemoryAddress, error) {
	if !s.tickOpen.Load() {
		return resolve()
	}

	key = fmt.Sprintf("%d|%s", s.tick.Load(), key)
	if v, ok := s.cache.Get(key); ok {
		return v.(process.ProcessMemoryAddress), nil
	}

	addr, err := resolve()
	if err != nil {
		return 0, err
	}
	s.cache.Add(key, addr)
	return addr, nil
}

// Address resolves a base offset's chain, cached per tick.
func (s *Session) Address(base offset.BaseOffset) (process.ProcessMemoryAddress, error) {
	return s.cached("addr:"+base.Key(), func() (process.ProcessMemoryAddress, error) {
		return base.Address(s)
	})
}

// Anchor resolves a base offset's anchor, cached per tick.
func (s *Session) Anchor(base offset.BaseOffset) (process.ProcessMemoryAddress, error) {
	return s.cached("anchor:"+base.Key(), func() (process.ProcessMemoryAddress, error) {
		return base.Anchor(s)
	})
}

// Resolve resolves off from the module base, or from base's anchor, reusing
// any resolution already done in the current tick.
func (s *Session) Resolve(base *offset.BaseOffset, off offset.Offset) (process.ProcessMemoryAddress, error) {
	if s.closed.Load() {
		return 0, ErrSessionClosed
	}

	baseKey := "module"
	if base != nil {
		baseKey = base.Key()
	}

	return s.cached("off:"+baseKey+"|"+off.Key(), func() (process.ProcessMemoryAddress, error) {
		origin := s.BaseAddress()
		if base != nil {
			anchor, err := s.Anchor(*base)
			if err != nil {
				return 0, err
			}
			origin = anchor
		}
		return offset.Resolve(s, origin, off)
	})
}

// Tick runs one scheduler tick synchronously and returns its id.
func (s *Session) Tick() uint64 {
	return s.scheduler.Tick()
}

func (s *Session) register(m member) (uint64, error) {
	if s.closed.Load() {
		return 0, ErrSessionClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.members[s.nextID] = m
	return s.nextID, nil
}

func (s *Session) unregister(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.members, id)
}

// snapshotMembers returns registered members in registration order.
func (s *Session) snapshotMembers() []member {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uint64, 0, len(s.members))
	for id := range s.members {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	result := make([]member, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.members[id])
	}
	return result
}

// Members returns the number of live marshalers.
func (s *Session) Members() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Close stops the scheduler, disposes every remaining marshaler and closes
// the process handle. Calling it again is a no-op.
func (s *Session) Close() error {
	if s.closed.Load() {
		return nil
	}

	s.scheduler.Stop()
	for _, m := range s.snapshotMembers() {
		m.Close()
	}

	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.alive.Store(false)
	s.cache.Purge()

	s.log.Infoln("Session closed")

	s.io.Lock()
	defer s.io.Unlock()
	return s.proc.Close()
}
