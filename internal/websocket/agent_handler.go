package websocket

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/auth"
	"github.com/dennisdiepolder/monti/agentdesk/internal/config"
)

// AgentHandler handles softphone WebSocket upgrade requests
type AgentHandler struct {
	hub      *AgentHub
	upgrader websocket.Upgrader
	// allowOverride lets ?agentId= pick the agent, used with SKIP_AUTH
	allowOverride bool
	logger        zerolog.Logger
}

// NewAgentHandler creates a new AgentHandler
func NewAgentHandler(hub *AgentHub, cfg *config.Config, logger zerolog.Logger) *AgentHandler {
	return &AgentHandler{
		hub:           hub,
		upgrader:      newUpgrader(cfg.AllowedOrigins),
		allowOverride: cfg.SkipAuth,
		logger:        logger,
	}
}

// ServeHTTP upgrades one softphone connection for the authenticated agent
func (h *AgentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	agentID := claims.UserID()
	if override := r.URL.Query().Get("agentId"); h.allowOverride && override != "" {
		agentID = override
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade agent connection")
		return
	}

	client := NewAgentClient(h.hub, conn, agentID, h.logger)
	h.hub.register <- client
	client.Start()
}
