package ticker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// FrameSource produces the live counters of every workspace session
type FrameSource interface {
	ClockFrames() map[string]types.ClockFrame
}

// Sender delivers a message to one agent's socket
type Sender interface {
	SendToAgent(agentID string, msg any) error
}

// Ticker periodically pushes clock frames to every agent
type Ticker struct {
	frames   FrameSource
	sender   Sender
	interval time.Duration
	logger   zerolog.Logger
}

// NewTicker creates a new Ticker
func NewTicker(frames FrameSource, sender Sender, interval time.Duration, logger zerolog.Logger) *Ticker {
	return &Ticker{
		frames:   frames,
		sender:   sender,
		interval: interval,
		logger:   logger.With().Str("component", "ticker").Logger(),
	}
}

// Start begins pushing clock frames
func (t *Ticker) Start(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Info().Dur("interval", t.interval).Msg("ticker started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info().Msg("ticker stopped")
			return

		case <-ticker.C:
			t.Tick()
		}
	}
}

// Tick sends one frame per session and returns how many were delivered.
// Agents without a connected softphone are skipped silently.
func (t *Ticker) Tick() int {
	frames := t.frames.ClockFrames()
	sent := 0
	for agentID, frame := range frames {
		if err := t.sender.SendToAgent(agentID, frame); err != nil {
			continue
		}
		sent++
	}

	t.logger.Debug().
		Int("sessions", len(frames)).
		Int("sent", sent).
		Msg("clock frames pushed")
	return sent
}
