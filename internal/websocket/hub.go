package websocket

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Hub maintains the set of supervisor clients and broadcasts roster snapshots to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound messages for every client
	broadcast chan []byte

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger.With().Str("component", "supervisor-hub").Logger(),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	m := metrics.Get()

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			m.RecordWebSocketConnect()
			h.logger.Info().
				Str("client_id", client.id).
				Int("total_clients", total).
				Msg("supervisor connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				m.RecordWebSocketDisconnect()
				h.logger.Info().
					Str("client_id", client.id).
					Int("total_clients", len(h.clients)).
					Msg("supervisor disconnected")
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			var snapshot types.RosterSnapshot
			if err := json.Unmarshal(message, &snapshot); err != nil || snapshot.Type != "roster" {
				h.broadcastRaw(message)
				continue
			}

			// per-client country filtering
			h.broadcastFiltered(&snapshot, message)
		}
	}
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(message []byte) {
	h.broadcast <- message
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// broadcastRaw sends a raw message to all clients without filtering
func (h *Hub) broadcastRaw(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		h.deliverLocked(client, message)
	}
}

// broadcastFiltered sends each client the roster rows it may see
func (h *Hub) broadcastFiltered(snapshot *types.RosterSnapshot, original []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		filtered := client.FilterRoster(snapshot)
		if filtered == nil {
			continue
		}

		data := original
		if filtered != snapshot {
			var err error
			data, err = json.Marshal(filtered)
			if err != nil {
				h.logger.Error().Err(err).Msg("failed to marshal filtered roster")
				continue
			}
		}
		h.deliverLocked(client, data)
	}
}

func (h *Hub) deliverLocked(client *Client, message []byte) {
	select {
	case client.send <- message:
		metrics.Get().RecordWebSocketMessage()
	default:
		// Client's send buffer is full, close and remove it
		close(client.send)
		delete(h.clients, client)
		metrics.Get().RecordWebSocketError()
		h.logger.Warn().
			Str("client_id", client.id).
			Msg("client send buffer full, closing connection")
	}
}
