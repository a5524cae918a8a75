package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/auth"
	"github.com/dennisdiepolder/monti/agentdesk/internal/storage"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// SessionRegistry ends workspace sessions on behalf of an admin
type SessionRegistry interface {
	Remove(ctx context.Context, agentID string) bool
	Count() int
}

// Disconnector drops an agent's softphone socket
type Disconnector interface {
	ForceDisconnect(agentID, reason string) bool
}

// PresenceResetter clears the softphone presence table
type PresenceResetter interface {
	Clear() int
}

// AdminHandler provides supervisor and admin operations
type AdminHandler struct {
	sessions SessionRegistry
	sockets  Disconnector
	presence PresenceResetter
	store    storage.Store
	logger   zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(sessions SessionRegistry, sockets Disconnector, presence PresenceResetter, store storage.Store, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		sessions: sessions,
		sockets:  sockets,
		presence: presence,
		store:    store,
		logger:   logger.With().Str("component", "admin").Logger(),
	}
}

// RequireAdmin middleware - only admin role allowed
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.GetUserFromContext(r.Context())
		if !ok || !auth.HasRole(claims, string(types.RoleAdmin)) {
			writeError(w, apperr.Forbidden("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireManagerOrAdmin middleware - supervisor or admin role allowed
func RequireManagerOrAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := auth.GetUserFromContext(r.Context())
		if !ok || (claims.Role != string(types.RoleAdmin) && claims.Role != string(types.RoleSupervisor)) {
			writeError(w, apperr.Forbidden("supervisor or admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Routes mounts the supervisor endpoints and, behind RequireAdmin, the admin ones
func (h *AdminHandler) Routes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(RequireManagerOrAdmin)
		r.Post("/agents/{agentId}/logout", h.Logout)
		r.Get("/agents/{agentId}/shifts", h.GetShifts)
		r.Get("/agents/{agentId}/dispositions", h.GetAgentDispositions)
		r.Get("/dispositions", h.GetDispositions)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdmin)
		r.Post("/reset-presence", h.ResetPresence)
		r.Post("/wipe-records", h.WipeRecords)
	})
}

// Logout handles POST /api/agents/{agentId}/logout. The shift is force-ended and the
// softphone socket dropped.
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")
	if agentID == "" {
		writeError(w, apperr.Validation("agentId is required"))
		return
	}

	sessionEnded := h.sessions.Remove(r.Context(), agentID)
	disconnected := h.sockets.ForceDisconnect(agentID, "logged out by supervisor")
	if !sessionEnded && !disconnected {
		writeError(w, apperr.NotFound("agent has no session"))
		return
	}

	h.logger.Info().
		Str("agent_id", agentID).
		Bool("session_ended", sessionEnded).
		Bool("disconnected", disconnected).
		Msg("agent logged out via API")

	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "agent logged out",
		"agentId":      agentID,
		"sessionEnded": sessionEnded,
		"disconnected": disconnected,
	})
}

// GetShifts handles GET /api/agents/{agentId}/shifts
func (h *AdminHandler) GetShifts(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")

	shifts, err := h.store.GetAgentShifts(r.Context(), agentID)
	if err != nil {
		h.logger.Error().Err(err).Str("agent_id", agentID).Msg("failed to get agent shifts")
		writeError(w, apperr.Internal("failed to retrieve shifts", err))
		return
	}
	if shifts == nil {
		shifts = []types.ShiftRecord{}
	}
	writeJSON(w, http.StatusOK, shifts)
}

// GetAgentDispositions handles GET /api/agents/{agentId}/dispositions?date=YYYY-MM-DD
func (h *AdminHandler) GetAgentDispositions(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentId")
	date, err := queryDate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	records, err := h.store.GetAgentDispositions(r.Context(), agentID, date)
	if err != nil {
		h.logger.Error().Err(err).
			Str("agent_id", agentID).
			Str("date", date).
			Msg("failed to get agent dispositions")
		writeError(w, apperr.Internal("failed to retrieve dispositions", err))
		return
	}
	if records == nil {
		records = []types.DispositionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetDispositions handles GET /api/dispositions?date=YYYY-MM-DD
func (h *AdminHandler) GetDispositions(w http.ResponseWriter, r *http.Request) {
	date, err := queryDate(r)
	if err != nil {
		writeError(w, err)
		return
	}

	records, err := h.store.GetDispositionRecords(r.Context(), date)
	if err != nil {
		h.logger.Error().Err(err).Str("date", date).Msg("failed to get dispositions")
		writeError(w, apperr.Internal("failed to retrieve dispositions", err))
		return
	}
	if records == nil {
		records = []types.DispositionRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// ResetPresence clears the softphone presence table
func (h *AdminHandler) ResetPresence(w http.ResponseWriter, r *http.Request) {
	cleared := h.presence.Clear()

	h.logger.Info().
		Int("agents", cleared).
		Int("sessions", h.sessions.Count()).
		Msg("presence reset")

	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "presence reset",
		"agentsCleared": cleared,
	})
}

// WipeRecords truncates the disposition and shift tables
func (h *AdminHandler) WipeRecords(w http.ResponseWriter, r *http.Request) {
	if err := h.store.TruncateAll(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("failed to truncate record tables")
		writeError(w, apperr.Internal("failed to truncate records", err))
		return
	}

	h.logger.Info().Msg("record tables truncated")
	writeJSON(w, http.StatusOK, map[string]string{"message": "record tables truncated"})
}

// queryDate reads ?date=YYYY-MM-DD
func queryDate(r *http.Request) (string, error) {
	date := r.URL.Query().Get("date")
	if date == "" {
		return "", apperr.Validation("date query parameter is required (YYYY-MM-DD)")
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", apperr.Validation("date must be YYYY-MM-DD")
	}
	return date, nil
}
