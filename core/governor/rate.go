package governor

import (
	"math/rand"
	"sync"
	"time"
)

const (
	// quietWindow is how long after the last throttle the governor must stay
	// unthrottled before it starts relaxing the delay.
	quietWindow = 120 * time.Second
	// relaxStreak is the minimum run of successes required to relax.
	relaxStreak = 15
	// growStreak adds one worker on every streak multiple inside the gate.
	growStreak = 20
	relaxRatio = 0.95
)

// Config bounds the adaptive state. Out-of-range values fail construction,
// they are never clamped silently.
type Config struct {
	MaxWorkers     int
	InitialWorkers int
	MinDelay       time.Duration
	MaxDelay       time.Duration
}

func (c Config) validate() error {
	if c.MaxWorkers < 1 || c.MaxWorkers > 32 {
		return errValidation("max_workers", "must be in [1, 32]")
	}
	if c.InitialWorkers < 1 || c.InitialWorkers > 16 {
		return errValidation("initial_workers", "must be in [1, 16]")
	}
	if c.InitialWorkers > c.MaxWorkers {
		return errValidation("initial_workers", "must not exceed max_workers")
	}
	if c.MinDelay <= 0 {
		return errValidation("min_delay", "must be positive")
	}
	if c.MaxDelay < c.MinDelay {
		return errValidation("max_delay", "must be >= min_delay")
	}
	return nil
}

// RateGovernor holds the adaptive concurrency and delay state. Reads may come
// from any worker; the two adjustment rules are only invoked from the
// scheduler's completion step, so writes stay single-writer in practice. The
// mutex keeps snapshots consistent regardless.
type RateGovernor struct {
	mu           sync.Mutex
	workers      int
	delay        time.Duration
	consecutive  int
	lastThrottle time.Time

	maxWorkers int
	minDelay   time.Duration
	maxDelay   time.Duration

	rng *rand.Rand
	now func() time.Time
}

// NewRateGovernor validates cfg and seeds the adaptive state with the initial
// worker count and the minimum delay.
func NewRateGovernor(cfg Config) (*RateGovernor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &RateGovernor{
		workers:    cfg.InitialWorkers,
		delay:      cfg.MinDelay,
		maxWorkers: cfg.MaxWorkers,
		minDelay:   cfg.MinDelay,
		maxDelay:   cfg.MaxDelay,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
	}, nil
}

// OnThrottle reacts to a flood wait: the delay grows proportionally to how
// badly the remote was overrun, one worker is shed, and the success streak
// restarts.
func (g *RateGovernor) OnThrottle(wait time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	multiplier := 1.5
	switch {
	case wait > 10*time.Second:
		multiplier = 2.0
	case wait > 5*time.Second:
		multiplier = 1.8
	}

	g.delay = minDuration(g.maxDelay, time.Duration(float64(g.delay)*multiplier))
	if g.workers > 1 {
		g.workers--
	}
	g.consecutive = 0
	g.lastThrottle = g.now()
}

// OnSuccess extends the streak and, once the governor has been quiet long
// enough, slowly walks the delay back down and regrows workers. The
// relaxation is deliberately much slower than the backoff so one lucky burst
// cannot re-trigger throttling.
func (g *RateGovernor) OnSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.consecutive++
	if g.now().Sub(g.lastThrottle) <= quietWindow || g.consecutive < relaxStreak {
		return
	}
	g.delay = maxDuration(g.minDelay, time.Duration(float64(g.delay)*relaxRatio))
	if g.consecutive%growStreak == 0 && g.workers < g.maxWorkers {
		g.workers++
	}
}

// OnFailure restarts the success streak without touching delay or workers.
// Used for failures that are not flood waits.
func (g *RateGovernor) OnFailure() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutive = 0
}

// NextDelay returns the governed pre-dispatch spacing with a fresh jitter
// draw, desynchronizing concurrent workers against the remote endpoint.
func (g *RateGovernor) NextDelay() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	jitter := 0.8 + g.rng.Float64()*0.4
	return time.Duration(float64(g.delay) * jitter)
}

// Workers returns the current concurrency.
func (g *RateGovernor) Workers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.workers
}

// State is a point-in-time copy of the adaptive parameters.
type State struct {
	Workers      int
	Delay        time.Duration
	Consecutive  int
	LastThrottle time.Time
}

// State snapshots the adaptive parameters for stats display.
func (g *RateGovernor) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return State{
		Workers:      g.workers,
		Delay:        g.delay,
		Consecutive:  g.consecutive,
		LastThrottle: g.lastThrottle,
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
