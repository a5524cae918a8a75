package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/cache"
	"github.com/dennisdiepolder/monti/agentdesk/internal/ingestion"
	"github.com/dennisdiepolder/monti/agentdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

var (
	// ErrNotConnected is returned when the agent has no softphone socket
	ErrNotConnected = errors.New("agent not connected")
	// ErrSendBufferFull is returned when the agent socket is not draining
	ErrSendBufferFull = errors.New("agent send buffer full")
)

// AgentHub maintains the set of active agent softphone connections
type AgentHub struct {
	// Registered agent clients
	agents map[string]*AgentClient // agentID -> client

	// Register requests from agent clients
	register chan *AgentClient

	// Unregister requests from agent clients
	unregister chan *AgentClient

	// Heartbeat messages from agents
	heartbeat chan *types.AgentHeartbeat

	// Agent registration messages
	agentRegister chan *types.AgentRegister

	// Call state messages from agents
	callState chan *types.CallEvent

	// Mutex to protect agents map
	mu sync.RWMutex

	logger zerolog.Logger

	// Presence tracker (for connection status management)
	tracker *cache.PresenceTracker

	// Event processor (for processing agent events)
	processor ingestion.EventProcessor
}

// NewAgentHub creates a new AgentHub
func NewAgentHub(tracker *cache.PresenceTracker, processor ingestion.EventProcessor, logger zerolog.Logger) *AgentHub {
	return &AgentHub{
		agents:        make(map[string]*AgentClient),
		register:      make(chan *AgentClient),
		unregister:    make(chan *AgentClient),
		heartbeat:     make(chan *types.AgentHeartbeat, 1000),
		agentRegister: make(chan *types.AgentRegister, 100),
		callState:     make(chan *types.CallEvent, 500),
		logger:        logger.With().Str("component", "agent-hub").Logger(),
		tracker:       tracker,
		processor:     processor,
	}
}

// Run starts the hub's main loop
func (h *AgentHub) Run() {
	m := metrics.Get()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			// a new socket replaces the agent's previous one
			if existing, ok := h.agents[client.agentID]; ok {
				existing.Close()
				delete(h.agents, client.agentID)
			}
			h.agents[client.agentID] = client
			total := len(h.agents)
			h.mu.Unlock()

			h.tracker.Register(&types.AgentRegister{AgentID: client.agentID})
			m.RecordAgentConnect()

			h.logger.Debug().
				Str("agent_id", client.agentID).
				Int("total_agents", total).
				Msg("agent connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if existing, ok := h.agents[client.agentID]; ok && existing == client {
				delete(h.agents, client.agentID)
				client.Close()
				h.tracker.SetConnected(client.agentID, false)
				m.RecordAgentDisconnect()

				h.logger.Debug().
					Str("agent_id", client.agentID).
					Int("total_agents", len(h.agents)).
					Msg("agent disconnected")
			}
			h.mu.Unlock()

		case reg := <-h.agentRegister:
			h.processor.ProcessRegister(reg)

		case hb := <-h.heartbeat:
			h.processor.ProcessHeartbeat(hb)

		case ev := <-h.callState:
			if err := h.processor.ProcessCallState(ev); err != nil {
				h.SendToAgent(ev.AgentID, types.Toast{
					Type:    "toast",
					Level:   types.ToastError,
					Title:   "Call state rejected",
					Message: err.Error(),
				})
			}
		}
	}
}

// ForceDisconnect sends a force_disconnect message to the agent, then closes the connection
func (h *AgentHub) ForceDisconnect(agentID, reason string) bool {
	h.SendToAgent(agentID, types.ForceDisconnect{
		Type:    "force_disconnect",
		AgentID: agentID,
		Reason:  reason,
	})

	h.mu.Lock()
	client, ok := h.agents[agentID]
	if ok {
		delete(h.agents, agentID)
		client.Close()
		h.tracker.SetConnected(agentID, false)
		metrics.Get().RecordAgentDisconnect()
		h.logger.Info().Str("agent_id", agentID).Str("reason", reason).Msg("agent force-disconnected")
	}
	h.mu.Unlock()

	return ok
}

// AgentCount returns the number of connected agents
func (h *AgentHub) AgentCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.agents)
}

// ConnectedAgents returns the ids of every connected agent
func (h *AgentHub) ConnectedAgents() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.agents))
	for id := range h.agents {
		ids = append(ids, id)
	}
	return ids
}

// SendToAgent marshals msg and queues it on the agent's socket
func (h *AgentHub) SendToAgent(agentID string, msg any) error {
	h.mu.RLock()
	client, ok := h.agents[agentID]
	h.mu.RUnlock()

	if !ok {
		return ErrNotConnected
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal agent message: %w", err)
	}
	if !client.safeSend(data) {
		return ErrSendBufferFull
	}
	return nil
}
