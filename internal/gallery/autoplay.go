package gallery

import (
	"sync"
	"time"
)

// DefaultInterval is the autoplay period.
const DefaultInterval = 5 * time.Second

// Timer is the part of *time.Timer that Autoplay needs.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The default wraps time.AfterFunc.
type Scheduler func(d time.Duration, f func()) Timer

func afterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// AutoplayOption customises an Autoplay.
type AutoplayOption func(*Autoplay)

// WithScheduler replaces the timer source, mostly for tests.
func WithScheduler(s Scheduler) AutoplayOption {
	return func(a *Autoplay) {
		if s != nil {
			a.schedule = s
		}
	}
}

// Autoplay fires tick on a fixed period. There is at most one pending timer; a timer
// that fires after Stop is discarded.
type Autoplay struct {
	mu       sync.Mutex
	period   time.Duration
	schedule Scheduler
	tick     func()
	timer    Timer
	gen      uint64
}

// NewAutoplay returns a stopped autoplay.
func NewAutoplay(period time.Duration, tick func(), opts ...AutoplayOption) *Autoplay {
	if period <= 0 {
		period = DefaultInterval
	}
	a := &Autoplay{period: period, schedule: afterFunc, tick: tick}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start arms the timer. It returns false when already running.
func (a *Autoplay) Start() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		return false
	}
	a.gen++
	a.arm(a.gen)
	return true
}

// Stop cancels the pending timer. It returns false when nothing was running.
func (a *Autoplay) Stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer == nil {
		return false
	}
	a.gen++
	a.timer.Stop()
	a.timer = nil
	return true
}

// Running reports whether a timer is pending.
func (a *Autoplay) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.timer != nil
}

func (a *Autoplay) arm(gen uint64) {
	a.timer = a.schedule(a.period, func() { a.fire(gen) })
}

func (a *Autoplay) fire(gen uint64) {
	a.mu.Lock()
	if a.timer == nil || a.gen != gen {
		a.mu.Unlock()
		return
	}
	tick := a.tick
	a.mu.Unlock()

	if tick != nil {
		tick()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil && a.gen == gen {
		a.arm(gen)
	}
}
