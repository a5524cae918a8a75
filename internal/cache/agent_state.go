package cache

import (
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/clock"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

const (
	// StaleThreshold is the duration after which a softphone is considered stale (3 missed heartbeats)
	StaleThreshold = 6 * time.Second
)

// Presence is the softphone connection state of one agent
type Presence struct {
	AgentID          string                      `json:"agentId"`
	Name             string                      `json:"name,omitempty"`
	ConnectionStatus types.AgentConnectionStatus `json:"connectionStatus"`
	ConnectedAt      time.Time                   `json:"connectedAt"`
	LastHeartbeat    time.Time                   `json:"lastHeartbeat"`
	OnShift          bool                        `json:"onShift"`
}

// PresenceTracker maintains the softphone connection state of all agents.
// It also receives workspace lifecycle events so agents on shift are never dropped.
type PresenceTracker struct {
	agents map[string]*Presence // agentID -> presence
	clock  clock.Clock
	mu     sync.RWMutex
}

var _ workspace.Lifecycle = (*PresenceTracker)(nil)

// NewPresenceTracker creates a new tracker
func NewPresenceTracker(clk clock.Clock) *PresenceTracker {
	if clk == nil {
		clk = clock.Real{}
	}
	return &PresenceTracker{
		agents: make(map[string]*Presence),
		clock:  clk,
	}
}

// Register records a new softphone connection
func (t *PresenceTracker) Register(reg *types.AgentRegister) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	p := t.getOrAddLocked(reg.AgentID)
	if reg.Name != "" {
		p.Name = reg.Name
	}
	p.ConnectionStatus = types.ConnConnected
	p.ConnectedAt = now
	p.LastHeartbeat = now
}

// Heartbeat refreshes a registered softphone. Unknown agents are ignored.
func (t *PresenceTracker) Heartbeat(hb *types.AgentHeartbeat) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, exists := t.agents[hb.AgentID]
	if !exists || p.ConnectionStatus == types.ConnDisconnected {
		return false
	}
	p.LastHeartbeat = t.clock.Now()
	p.ConnectionStatus = types.ConnConnected
	return true
}

// SetConnected updates the connection status of an agent
func (t *PresenceTracker) SetConnected(agentID string, connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p, exists := t.agents[agentID]
	if !exists {
		return
	}
	if connected {
		p.ConnectionStatus = types.ConnConnected
	} else {
		p.ConnectionStatus = types.ConnDisconnected
	}
	p.LastHeartbeat = t.clock.Now() // disconnections age out from here
}

// OnSessionStart marks the agent as on shift
func (t *PresenceTracker) OnSessionStart(agent workspace.Agent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.getOrAddLocked(agent.ID)
	p.Name = agent.Name
	p.OnShift = true
}

// OnSessionEnd clears the shift flag
func (t *PresenceTracker) OnSessionEnd(agent workspace.Agent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, exists := t.agents[agent.ID]; exists {
		p.OnShift = false
	}
}

// CheckStale marks connected softphones as stale if no heartbeat arrived within threshold
func (t *PresenceTracker) CheckStale() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	threshold := t.clock.Now().Add(-StaleThreshold)
	marked := 0
	for _, p := range t.agents {
		if p.ConnectionStatus == types.ConnConnected && p.LastHeartbeat.Before(threshold) {
			p.ConnectionStatus = types.ConnStale
			marked++
		}
	}
	return marked
}

// Annotate fills the connection columns of roster rows
func (t *PresenceTracker) Annotate(rows []types.AgentInfo) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := range rows {
		p, exists := t.agents[rows[i].AgentID]
		if !exists {
			rows[i].ConnectionStatus = types.ConnDisconnected
			continue
		}
		rows[i].ConnectionStatus = p.ConnectionStatus
		rows[i].LastHeartbeat = p.LastHeartbeat
	}
}

// Get returns one agent's presence
func (t *PresenceTracker) Get(agentID string) (Presence, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, exists := t.agents[agentID]
	if !exists {
		return Presence{}, false
	}
	return *p, true
}

// Connected reports whether the agent's softphone is connected and not stale
func (t *PresenceTracker) Connected(agentID string) bool {
	p, ok := t.Get(agentID)
	return ok && p.ConnectionStatus == types.ConnConnected
}

// GetAll returns every tracked agent
func (t *PresenceTracker) GetAll() []Presence {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Presence, 0, len(t.agents))
	for _, p := range t.agents {
		out = append(out, *p)
	}
	return out
}

// RemoveDisconnected removes agents off shift that have been disconnected for longer than maxAge
func (t *PresenceTracker) RemoveDisconnected(maxAge time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	threshold := t.clock.Now().Add(-maxAge)
	removed := 0
	for id, p := range t.agents {
		if !p.OnShift && p.ConnectionStatus == types.ConnDisconnected && p.LastHeartbeat.Before(threshold) {
			delete(t.agents, id)
			removed++
		}
	}
	return removed
}

// Clear drops every entry and returns how many there were
func (t *PresenceTracker) Clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.agents)
	t.agents = make(map[string]*Presence)
	return n
}

// Count returns the total number of tracked agents
func (t *PresenceTracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.agents)
}

// GetConnectionStats returns connection statistics
func (t *PresenceTracker) GetConnectionStats() (connected, stale, disconnected int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, p := range t.agents {
		switch p.ConnectionStatus {
		case types.ConnConnected:
			connected++
		case types.ConnStale:
			stale++
		case types.ConnDisconnected:
			disconnected++
		}
	}
	return
}

func (t *PresenceTracker) getOrAddLocked(agentID string) *Presence {
	p, exists := t.agents[agentID]
	if !exists {
		p = &Presence{AgentID: agentID, ConnectionStatus: types.ConnDisconnected}
		t.agents[agentID] = p
	}
	return p
}
