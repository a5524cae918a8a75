package aggregator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/alerts"
	"github.com/dennisdiepolder/monti/agentdesk/internal/cache"
	"github.com/dennisdiepolder/monti/agentdesk/internal/clock"
	"github.com/dennisdiepolder/monti/agentdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// disconnectedTTL is how long an off-shift softphone stays on the roster after it dropped
const disconnectedTTL = 5 * time.Minute

// RosterSource lists one row per workspace session
type RosterSource interface {
	Roster() []types.AgentInfo
}

// Broadcaster delivers a message to every supervisor
type Broadcaster interface {
	Broadcast(message []byte)
	ClientCount() int
}

// Aggregator builds the supervisor roster and broadcasts it
type Aggregator struct {
	sessions RosterSource
	presence *cache.PresenceTracker
	events   *cache.EventCache
	hub      Broadcaster
	clock    clock.Clock
	interval time.Duration
	logger   zerolog.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(sessions RosterSource, presence *cache.PresenceTracker, events *cache.EventCache, hub Broadcaster, interval time.Duration, logger zerolog.Logger) *Aggregator {
	if interval <= 0 {
		interval = time.Second
	}
	return &Aggregator{
		sessions: sessions,
		presence: presence,
		events:   events,
		hub:      hub,
		clock:    clock.Real{},
		interval: interval,
		logger:   logger.With().Str("component", "aggregator").Logger(),
	}
}

// Start begins building and broadcasting rosters
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info().Dur("interval", a.interval).Msg("aggregator started")

	for {
		select {
		case <-ctx.Done():
			a.logger.Info().Msg("aggregator stopped")
			return

		case <-ticker.C:
			a.Cycle()
		}
	}
}

// Cycle builds one snapshot and broadcasts it. It returns the snapshot for callers
// that want it and false when there was nothing to send.
func (a *Aggregator) Cycle() (types.RosterSnapshot, bool) {
	m := metrics.Get()
	cycleStart := time.Now()

	a.presence.CheckStale()
	if removed := a.presence.RemoveDisconnected(disconnectedTTL); removed > 0 {
		a.logger.Debug().Int("removed", removed).Msg("dropped disconnected softphones")
	}

	snapshot := a.Build()
	m.UpdateAgentStats(snapshot.Agents)
	if len(snapshot.Agents) == 0 {
		return snapshot, false
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		a.logger.Error().Err(err).Msg("failed to marshal roster")
		m.RecordRosterError()
		return snapshot, false
	}

	a.hub.Broadcast(data)
	m.RecordRosterCycle(time.Since(cycleStart))

	a.logger.Debug().
		Int("agents", snapshot.Summary.TotalAgents).
		Int("alerts", snapshot.Summary.AlertCount).
		Int("call_events", snapshot.Summary.CallEvents).
		Int("clients", a.hub.ClientCount()).
		Msg("roster broadcasted")
	return snapshot, true
}

// Build assembles the roster: session rows, connection status, alerts and summary.
// It drains the call event cache.
func (a *Aggregator) Build() types.RosterSnapshot {
	return a.build(len(a.events.GetAndClear()))
}

// Snapshot assembles the roster without draining call events, for on-demand reads
func (a *Aggregator) Snapshot() types.RosterSnapshot {
	return a.build(a.events.Size())
}

func (a *Aggregator) build(callEvents int) types.RosterSnapshot {
	now := a.clock.Now()

	agents := a.sessions.Roster()
	a.presence.Annotate(agents)
	alerts.CheckAgentAlerts(agents, now)

	summary := types.Summarize(agents)
	summary.CallEvents = callEvents

	return types.RosterSnapshot{
		Type:      "roster",
		Timestamp: now,
		Summary:   summary,
		Agents:    agents,
	}
}
