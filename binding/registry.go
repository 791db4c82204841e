package binding

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// ErrBindingContract reports a wiring error at bind time: a stale owner,
// an owner without named properties, an unknown name or a type mismatch.
var ErrBindingContract = errors.New("binding contract violation")

// Handle identifies a registered owner. A handle goes stale when its owner
// is released; stale handles never match a reused slot.
type Handle struct {
	index uint32
	gen   uint32
}

func (h Handle) IsZero() bool { return h.gen == 0 }

func (h Handle) String() string {
	return fmt.Sprintf("owner#%d.%d", h.index, h.gen)
}

// detacher is the untyped view of a Bridge held by the registry.
type detacher interface {
	Detach()
}

type slot struct {
	gen     uint32
	owner   any
	live    bool
	bridges map[string]detacher
}

// Registry is an arena of binding owners. Bridges reference owners by
// Handle and check it before every dispatch.
type Registry struct {
	mu    sync.Mutex
	slots []slot
	free  []uint32
	log   *logger.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "binding")),
	}
}

// Register adds owner to the arena.
func (r *Registry) Register(owner any) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n := len(r.free); n > 0 {
		index := r.free[n-1]
		r.free = r.free[:n-1]
		s := &r.slots[index]
		s.gen++
		s.owner = owner
		s.live = true
		s.bridges = make(map[string]detacher)
		return Handle{index: index, gen: s.gen}
	}

	r.slots = append(r.slots, slot{gen: 1, owner: owner, live: true, bridges: make(map[string]detacher)})
	return Handle{index: uint32(len(r.slots) - 1), gen: 1}
}

func (r *Registry) slotLocked(h Handle) *slot {
	if h.IsZero() || int(h.index) >= len(r.slots) {
		return nil
	}
	s := &r.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil
	}
	return s
}

// Valid reports whether h still refers to a registered owner.
func (r *Registry) Valid(h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slotLocked(h) != nil
}

// Owner returns the owner behind h.
func (r *Registry) Owner(h Handle) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slotLocked(h)
	if s == nil {
		return nil, false
	}
	return s.owner, true
}

// Bound reports whether (h, name) has an active bridge.
func (r *Registry) Bound(h Handle, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.slotLocked(h)
	if s == nil {
		return false
	}
	_, ok := s.bridges[name]
	return ok
}

// Release detaches every bridge of h's owner and invalidates h.
func (r *Registry) Release(h Handle) {
	r.mu.Lock()
	s := r.slotLocked(h)
	if s == nil {
		r.mu.Unlock()
		return
	}
	bridges := make([]detacher, 0, len(s.bridges))
	for _, b := range s.bridges {
		bridges = append(bridges, b)
	}
	s.live = false
	s.owner = nil
	s.bridges = nil
	r.free = append(r.free, h.index)
	r.mu.Unlock()

	for _, b := range bridges {
		b.Detach()
	}
	r.log.Debugln("released", h.String(), "with", len(bridges), "bridges")
}

// attach records b as the bridge for (h, name) and returns the bridge it
// replaces, if any.
func (r *Registry) attach(h Handle, name string, b detacher) (detacher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.slotLocked(h)
	if s == nil {
		return nil, fmt.Errorf("%w: %s is stale", ErrBindingContract, h)
	}
	prev := s.bridges[name]
	s.bridges[name] = b
	return prev, nil
}

// forget removes b from (h, name) if it is still the registered bridge.
func (r *Registry) forget(h Handle, name string, b detacher) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := r.slotLocked(h)
	if s == nil {
		return
	}
	if s.bridges[name] == b {
		delete(s.bridges, name)
	}
}
