package marshal

import "time"

// Options tunes a Session and its scheduler.
type Options struct {
	// TickInterval is the scheduler period.
	TickInterval time.Duration

	// CacheSize bounds the per-tick resolved address cache.
	CacheSize int

	// BreakerFailures is the number of consecutive memory access failures
	// after which a marshaler stops touching memory.
	BreakerFailures uint32

	// BreakerCooldown is how long an open breaker waits before letting one
	// read through again.
	BreakerCooldown time.Duration
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		TickInterval:    33 * time.Millisecond,
		CacheSize:       1024,
		BreakerFailures: 5,
		BreakerCooldown: 2 * time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.TickInterval <= 0 {
		o.TickInterval = def.TickInterval
	}
	if o.CacheSize <= 0 {
		o.CacheSize = def.CacheSize
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = def.BreakerFailures
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = def.BreakerCooldown
	}
	return o
}
