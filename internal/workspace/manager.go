package workspace

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/calltiming"
	"github.com/dennisdiepolder/monti/agentdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Manager owns the sessions of all logged-in agents
type Manager struct {
	deps   Deps
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager creates an empty registry
func NewManager(deps Deps) *Manager {
	deps.defaults()
	return &Manager{
		deps:     deps,
		logger:   deps.Logger.With().Str("component", "workspace-manager").Logger(),
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the agent's session, creating it on first use
func (m *Manager) GetOrCreate(agent Agent) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[agent.ID]; ok {
		return s
	}
	s := NewSession(agent, m.deps)
	m.sessions[agent.ID] = s
	m.logger.Info().Str("agent_id", agent.ID).Msg("Session created")
	return s
}

// Get returns an existing session
func (m *Manager) Get(agentID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[agentID]
	return s, ok
}

// Remove closes and forgets the agent's session
func (m *Manager) Remove(ctx context.Context, agentID string) bool {
	m.mu.Lock()
	s, ok := m.sessions[agentID]
	delete(m.sessions, agentID)
	m.mu.Unlock()

	if ok {
		s.Close(ctx)
	}
	return ok
}

// All returns every session ordered by agent id
func (m *Manager) All() []*Session {
	m.mu.RLock()
	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].agent.ID < out[j].agent.ID })
	return out
}

// Count returns the number of sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Roster returns one row per session
func (m *Manager) Roster() []types.AgentInfo {
	sessions := m.All()
	out := make([]types.AgentInfo, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Roster())
	}
	return out
}

// ClockFrames returns the live counters of every session keyed by agent id
func (m *Manager) ClockFrames() map[string]types.ClockFrame {
	sessions := m.All()
	out := make(map[string]types.ClockFrame, len(sessions))
	for _, s := range sessions {
		out[s.agent.ID] = s.Clock()
	}
	return out
}

// HandleCallEvent routes a call state change to the agent's session
func (m *Manager) HandleCallEvent(ev types.CallEvent) (calltiming.Transition, error) {
	metrics.Get().RecordCallEvent()
	s, ok := m.Get(ev.AgentID)
	if !ok {
		metrics.Get().RecordCallEventError()
		return calltiming.Transition{}, apperr.NotFound("no workspace session for agent " + ev.AgentID)
	}
	tr, err := s.HandleCallEvent(ev)
	if err != nil {
		metrics.Get().RecordCallEventError()
	}
	return tr, err
}

// CloseAll ends every session, used on shutdown
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close(ctx)
	}
	m.logger.Info().Int("sessions", len(sessions)).Msg("All sessions closed")
}
