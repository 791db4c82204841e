package marshal

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// ErrSchedulerRunning is returned by Start when the loop is already running.
var ErrSchedulerRunning = errors.New("scheduler already running")

// Scheduler is the single clock that refreshes a session's marshalers.
type Scheduler struct {
	session *Session
	log     *logger.Logger

	// ticking serializes ticks and guards wasAlive.
	ticking  sync.Mutex
	wasAlive bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newScheduler(s *Session) *Scheduler {
	return &Scheduler{
		session:  s,
		wasAlive: s.alive.Load(),
		log:      logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "scheduler")),
	}
}

// Start runs the tick loop on its own goroutine until ctx is cancelled or
// Stop is called.
func (sc *Scheduler) Start(ctx context.Context) error {
	if sc.session.closed.Load() {
		return ErrSessionClosed
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.cancel != nil {
		return ErrSchedulerRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	sc.cancel = cancel
	sc.done = make(chan struct{})

	go sc.loop(ctx, sc.done)

	sc.log.Infoln("Scheduler started, interval", sc.session.opts.TickInterval)
	return nil
}

func (sc *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(sc.session.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sc.Tick()
		}
	}
}

// Stop halts the loop and waits for an in-flight tick to finish. It also
// ends the current tick, so later reads resolve from scratch until the next
// tick.
func (sc *Scheduler) Stop() {
	sc.mu.Lock()
	cancel, done := sc.cancel, sc.done
	sc.cancel, sc.done = nil, nil
	sc.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		sc.log.Infoln("Scheduler stopped")
	}

	sc.session.tickOpen.Store(false)
	sc.session.cache.Purge()
}

// Running reports whether the loop goroutine is active.
func (sc *Scheduler) Running() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.cancel != nil
}

// Tick advances the clock once: purge the address cache, take one liveness
// snapshot, then refresh every marshaler. A panicking marshaler is logged
// and skipped; the others still refresh.
func (sc *Scheduler) Tick() uint64 {
	sc.ticking.Lock()
	defer sc.ticking.Unlock()

	s := sc.session
	if s.closed.Load() {
		return s.tick.Load()
	}

	id := s.tick.Add(1)
	s.cache.Purge()
	s.tickOpen.Store(true)

	alive := s.IsAlive()
	s.alive.Store(alive)
	if alive != sc.wasAlive {
		if alive {
			sc.log.Infoln("Process is alive again at tick", id)
		} else {
			sc.log.Warn("process is gone at tick ", id, ", suspending memory access")
		}
		sc.wasAlive = alive
	}

	for _, m := range s.snapshotMembers() {
		sc.refresh(m, id, alive)
	}
	return id
}

func (sc *Scheduler) refresh(m member, id uint64, alive bool) {
	defer func() {
		if r := recover(); r != nil {
			sc.log.Warn(fmt.Sprintf("refresh panicked at tick %d: %v", id, r))
		}
	}()
	m.refresh(id, alive)
}
