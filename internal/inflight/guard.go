// Package inflight guards a submission against duplicate dispatch.
package inflight

import (
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/clock"
	"github.com/rs/zerolog"
)

// DefaultTimeout force-resets a guard whose holder never released it
const DefaultTimeout = 30 * time.Second

// Guard is a submitting flag with a hard timeout
type Guard struct {
	name    string
	clock   clock.Clock
	timeout time.Duration
	logger  zerolog.Logger

	mu    sync.Mutex
	busy  bool
	gen   uint64
	timer clock.Timer
}

// NewGuard creates a guard; timeout <= 0 uses DefaultTimeout
func NewGuard(name string, clk clock.Clock, timeout time.Duration, logger zerolog.Logger) *Guard {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Guard{
		name:    name,
		clock:   clk,
		timeout: timeout,
		logger:  logger.With().Str("component", "inflight").Str("guard", name).Logger(),
	}
}

// TryAcquire marks the guard busy. It returns ok=false while another submission holds
// it. The returned release is idempotent and ignores calls after a forced reset.
func (g *Guard) TryAcquire() (release func(), ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.busy {
		return func() {}, false
	}
	g.busy = true
	g.gen++
	gen := g.gen
	g.timer = g.clock.AfterFunc(g.timeout, func() { g.forceReset(gen) })

	var once sync.Once
	return func() {
		once.Do(func() { g.release(gen) })
	}, true
}

// Busy reports whether a submission is in flight
func (g *Guard) Busy() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy
}

// Reset clears the guard unconditionally, e.g. when its owner is torn down
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clearLocked()
}

func (g *Guard) release(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != gen || !g.busy {
		return
	}
	g.clearLocked()
}

func (g *Guard) forceReset(gen uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.gen != gen || !g.busy {
		return
	}
	g.logger.Warn().Dur("timeout", g.timeout).Msg("submission did not finish, forcing guard reset")
	g.timer = nil
	g.busy = false
	g.gen++
}

func (g *Guard) clearLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
	g.busy = false
	g.gen++
}
