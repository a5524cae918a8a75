package contactqueue

import (
	"math"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/clock"
)

// AutoDialer is the auto mode countdown that loads the next contact when it expires.
// Re-arming or cancelling turns any earlier countdown's callback into a no-op.
type AutoDialer struct {
	clock clock.Clock

	mu       sync.Mutex
	gen      uint64
	timer    clock.Timer
	deadline time.Time
	armed    bool
}

// NewAutoDialer creates an idle countdown
func NewAutoDialer(clk clock.Clock) *AutoDialer {
	return &AutoDialer{clock: clk}
}

// Arm starts a countdown of delay, replacing any running one. fire receives the
// countdown's generation so the caller can reject it if its own state moved on.
func (a *AutoDialer) Arm(delay time.Duration, fire func(gen uint64)) uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()
	a.gen++
	gen := a.gen
	a.armed = true
	a.deadline = a.clock.Now().Add(delay)
	a.timer = a.clock.AfterFunc(delay, func() {
		a.mu.Lock()
		if a.gen != gen || !a.armed {
			a.mu.Unlock()
			return
		}
		a.armed = false
		a.timer = nil
		a.mu.Unlock()

		fire(gen)
	})
	return gen
}

// Cancel stops the running countdown, if any
func (a *AutoDialer) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
	a.gen++
}

// Armed reports whether a countdown is running
func (a *AutoDialer) Armed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.armed
}

// Current reports whether gen is the generation of the running countdown or the one
// that just fired
func (a *AutoDialer) Current(gen uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gen == gen
}

// Remaining returns the whole seconds left on the countdown, rounded up
func (a *AutoDialer) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.armed {
		return 0
	}
	left := a.deadline.Sub(a.clock.Now())
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

func (a *AutoDialer) stopLocked() {
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.armed = false
}
