package marshal

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"

	"livemem/offset"
	"livemem/process"
)

// PatchState is the observed state of a flag patch.
type PatchState int

const (
	PatchUnknown PatchState = iota
	PatchOff
	PatchOn
)

func (s PatchState) String() string {
	switch s {
	case PatchOn:
		return "on"
	case PatchOff:
		return "off"
	default:
		return "unknown"
	}
}

// PatchMarshaler toggles a FlagOffset on demand. It is not driven by the
// scheduler.
type PatchMarshaler struct {
	session  *Session
	flag     offset.FlagOffset
	base     *offset.BaseOffset
	log      *logger.Logger
	apply    sync.Mutex
	disposed atomic.Bool
}

// NewPatch creates a patch marshaler for flag, rooted like Acquire.
func NewPatch(s *Session, flag offset.FlagOffset, base *offset.BaseOffset) (*PatchMarshaler, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	if flag.PatchLen() == 0 {
		return nil, fmt.Errorf("patch %s: %w", flag.Offset, offset.ErrBadPattern)
	}

	p := &PatchMarshaler{
		session: s,
		flag:    flag,
		log:     logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "patch-"+flag.Offset.String())),
	}
	if base != nil {
		b := *base
		p.base = &b
	}
	return p, nil
}

func (p *PatchMarshaler) Flag() offset.FlagOffset { return p.flag }

func (p *PatchMarshaler) current() (process.ProcessMemoryAddress, []byte, error) {
	if p.disposed.Load() {
		return 0, nil, ErrDisposed
	}
	if !p.session.IsAlive() {
		return 0, nil, errProcessGone()
	}

	addr, err := p.session.Resolve(p.base, p.flag.Offset)
	if err != nil {
		return 0, nil, err
	}

	data, err := p.session.ReadMemory(addr, process.ProcessMemorySize(p.flag.PatchLen()))
	if err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return 0, nil, err
		}
		return 0, nil, fmt.Errorf("%w: read patch %s at %s: %w", process.ErrMemoryAccess, p.flag.Offset, addr.ToString(), err)
	}
	return addr, data, nil
}

// Apply writes the on or off pattern. Nothing is written when memory
// already holds the requested pattern.
func (p *PatchMarshaler) Apply(enabled bool) error {
	p.apply.Lock()
	defer p.apply.Unlock()

	addr, current, err := p.current()
	if err != nil {
		return err
	}

	if (enabled && p.flag.IsOn(current)) || (!enabled && p.flag.IsOff(current)) {
		return nil
	}

	if !p.flag.IsOn(current) && !p.flag.IsOff(current) {
		p.log.Warn(fmt.Sprintf("patch %s at %s holds % x, matching neither pattern", p.flag.Offset, addr.ToString(), current))
	}

	if err := p.session.WriteMemory(addr, p.flag.Pattern(enabled)); err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return err
		}
		return fmt.Errorf("%w: write patch %s at %s: %w", process.ErrMemoryAccess, p.flag.Offset, addr.ToString(), err)
	}

	p.log.Infoln("Patch", stateFor(enabled), "at", addr.ToString())
	return nil
}

func stateFor(enabled bool) PatchState {
	if enabled {
		return PatchOn
	}
	return PatchOff
}

// ApplyAsync runs Apply on its own goroutine. The returned channel receives
// exactly one result and is then closed.
func (p *PatchMarshaler) ApplyAsync(enabled bool) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- p.Apply(enabled)
	}()
	return result
}

// PatchState reports on, off, or unknown when memory matches neither
// pattern.
func (p *PatchMarshaler) PatchState() (PatchState, error) {
	_, current, err := p.current()
	if err != nil {
		return PatchUnknown, err
	}
	switch {
	case p.flag.IsOn(current):
		return PatchOn, nil
	case p.flag.IsOff(current):
		return PatchOff, nil
	default:
		return PatchUnknown, nil
	}
}

// State is true iff memory holds the on pattern exactly.
func (p *PatchMarshaler) State() (bool, error) {
	state, err := p.PatchState()
	return state == PatchOn, err
}

// Close marks the patch marshaler unusable. It does not restore the off
// pattern.
func (p *PatchMarshaler) Close() error {
	p.disposed.Store(true)
	return nil
}
