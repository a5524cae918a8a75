package api

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/auth"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// RosterSnapshotter builds the current supervisor roster
type RosterSnapshotter interface {
	Snapshot() types.RosterSnapshot
}

// RosterHandler serves the roster to supervisors that poll instead of subscribing
type RosterHandler struct {
	roster RosterSnapshotter
	logger zerolog.Logger
}

// NewRosterHandler creates a new RosterHandler
func NewRosterHandler(roster RosterSnapshotter, logger zerolog.Logger) *RosterHandler {
	return &RosterHandler{
		roster: roster,
		logger: logger.With().Str("component", "roster").Logger(),
	}
}

// GetRoster handles GET /api/roster, filtered to the caller's countries
func (h *RosterHandler) GetRoster(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetUserFromContext(r.Context())
	if !ok {
		writeError(w, apperr.Unauthorized("not authenticated"))
		return
	}

	snapshot := h.roster.Snapshot()
	filtered := auth.FilterRoster(claims, &snapshot)
	if filtered == nil {
		filtered = &types.RosterSnapshot{
			Type:      snapshot.Type,
			Timestamp: snapshot.Timestamp,
			Summary:   types.Summarize(nil),
			Agents:    []types.AgentInfo{},
		}
	}

	h.logger.Debug().
		Str("user", claims.UserID()).
		Int("agents", len(filtered.Agents)).
		Msg("roster served")
	writeJSON(w, http.StatusOK, filtered)
}
