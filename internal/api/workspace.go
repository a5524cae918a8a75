package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/crmapi"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

// Sessions hands out the per-agent workspace sessions
type Sessions interface {
	GetOrCreate(agent workspace.Agent) *workspace.Session
}

// Directory is the read-only part of the CRM the workspace browses
type Directory interface {
	ListCampaigns(ctx context.Context) ([]types.Campaign, error)
	Search(ctx context.Context, query string) ([]crmapi.SearchResult, error)
}

// WorkspaceHandler exposes an agent's workspace session over REST
type WorkspaceHandler struct {
	sessions  Sessions
	directory Directory
	skipAuth  bool
	logger    zerolog.Logger
}

// NewWorkspaceHandler creates a new WorkspaceHandler
func NewWorkspaceHandler(sessions Sessions, directory Directory, skipAuth bool, logger zerolog.Logger) *WorkspaceHandler {
	return &WorkspaceHandler{
		sessions:  sessions,
		directory: directory,
		skipAuth:  skipAuth,
		logger:    logger.With().Str("component", "workspace_api").Logger(),
	}
}

// Routes mounts the workspace endpoints
func (h *WorkspaceHandler) Routes(r chi.Router) {
	r.Get("/campaigns", h.ListCampaigns)
	r.Get("/search", h.Search)

	r.Route("/workspace", func(r chi.Router) {
		r.Get("/", h.Snapshot)
		r.Post("/shift/start", h.StartShift)
		r.Post("/shift/end", h.EndShift)
		r.Put("/status", h.SetStatus)
		r.Post("/campaign", h.SelectCampaign)
		r.Post("/refresh", h.Refresh)

		r.Get("/queue", h.Queue)
		r.Post("/next", h.LoadNext)
		r.Post("/focus", h.Focus)

		r.Get("/tasks", h.Tasks)
		r.Post("/tasks/{taskId}/switch", h.SwitchTask)
		r.Delete("/tasks/{taskId}", h.CloseTask)

		r.Put("/channel", h.SelectChannel)
		r.Put("/phone-tab", h.SelectPhoneTab)

		r.Route("/call", func(r chi.Router) {
			r.Post("/dial", h.Dial)
			r.Post("/hangup", h.Hangup)
			r.Post("/mute", h.Mute)
			r.Post("/hold", h.Hold)
			r.Post("/dtmf", h.DTMF)
			r.Post("/volume", h.Volume)
		})

		r.Route("/disposition", func(r chi.Router) {
			r.Get("/", h.Gate)
			r.Post("/open", h.OpenDisposition)
			r.Post("/select", h.SelectDisposition)
			r.Post("/schedule", h.ConfirmSchedule)
			r.Post("/back", h.DispositionBack)
			r.Post("/dismiss", h.DismissDisposition)
		})

		r.Post("/email", h.SendEmail)
		r.Post("/sms", h.SendSMS)
		r.Post("/notes", h.AddNote)
		r.Get("/history", h.History)

		r.Route("/script", func(r chi.Router) {
			r.Post("/answer", h.ScriptAnswer)
			r.Post("/next", h.ScriptNext)
			r.Post("/back", h.ScriptBack)
		})
	})
}

// session resolves the caller's session; on failure the error is already written
func (h *WorkspaceHandler) session(w http.ResponseWriter, r *http.Request) (*workspace.Session, context.Context, bool) {
	agent, ctx, err := identify(r, h.skipAuth)
	if err != nil {
		writeError(w, err)
		return nil, nil, false
	}
	return h.sessions.GetOrCreate(agent), ctx, true
}

// respond writes the session view after a successful command
func (h *WorkspaceHandler) respond(w http.ResponseWriter, s *workspace.Session, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// ListCampaigns handles GET /api/campaigns, filtered to the countries the agent may see
func (h *WorkspaceHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	agent, ctx, err := identify(r, h.skipAuth)
	if err != nil {
		writeError(w, err)
		return
	}
	campaigns, err := h.directory.ListCampaigns(ctx)
	if err != nil {
		h.logger.Error().Err(err).Str("agent_id", agent.ID).Msg("failed to list campaigns")
		writeError(w, err)
		return
	}

	visible := make([]types.Campaign, 0, len(campaigns))
	for _, c := range campaigns {
		if c.IsActive && agent.CanSee(c) {
			visible = append(visible, c)
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

// Search handles GET /api/search?q=
func (h *WorkspaceHandler) Search(w http.ResponseWriter, r *http.Request) {
	_, ctx, err := identify(r, h.skipAuth)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query().Get("q")
	if len(q) < 2 {
		writeError(w, apperr.Validation("search query needs at least 2 characters"))
		return
	}
	results, err := h.directory.Search(ctx, q)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []crmapi.SearchResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// Snapshot handles GET /api/workspace
func (h *WorkspaceHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *WorkspaceHandler) StartShift(w http.ResponseWriter, r *http.Request) {
	s, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, s, s.StartShift(ctx))
}

func (h *WorkspaceHandler) EndShift(w http.ResponseWriter, r *http.Request) {
	s, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, s, s.EndShift(ctx))
}

type statusRequest struct {
	Status types.AgentStatus `json:"status" validate:"required"`
}

// SetStatus handles PUT /api/workspace/status
func (h *WorkspaceHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	s, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, s, s.SetStatus(ctx, req.Status))
}

type campaignRequest struct {
	CampaignID string `json:"campaignId" validate:"required"`
}

// SelectCampaign handles POST /api/workspace/campaign
func (h *WorkspaceHandler) SelectCampaign(w http.ResponseWriter, r *http.Request) {
	s, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	var req campaignRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.SelectCampaign(ctx, req.CampaignID); err != nil {
		h.logger.Warn().Err(err).
			Str("agent_id", s.Agent().ID).
			Str("campaign_id", req.CampaignID).
			Msg("campaign selection failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *WorkspaceHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, s, s.Refresh(ctx))
}

// Queue handles GET /api/workspace/queue
func (h *WorkspaceHandler) Queue(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Queue())
}

// LoadNext handles POST /api/workspace/next
func (h *WorkspaceHandler) LoadNext(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	contact, err := s.LoadNext()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

type focusRequest struct {
	ContactID string `json:"contactId" validate:"required"`
}

// Focus handles POST /api/workspace/focus
func (h *WorkspaceHandler) Focus(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var req focusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	contact, err := s.FocusContact(req.ContactID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, contact)
}

func (h *WorkspaceHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Tasks())
}

func (h *WorkspaceHandler) SwitchTask(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	task, err := s.SwitchTask(chi.URLParam(r, "taskId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *WorkspaceHandler) CloseTask(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respond(w, s, s.CloseTask(chi.URLParam(r, "taskId")))
}

type channelRequest struct {
	Channel types.Channel `json:"channel" validate:"required,oneof=phone email sms"`
}

func (h *WorkspaceHandler) SelectChannel(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var req channelRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.SelectChannel(req.Channel))
}

type phoneTabRequest struct {
	Tab workspace.PhoneTab `json:"tab" validate:"required,oneof=dialer script history"`
}

func (h *WorkspaceHandler) SelectPhoneTab(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var req phoneTabRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.SelectPhoneTab(req.Tab))
}

type dialRequest struct {
	Number string `json:"number,omitempty"`
}

// Dial handles POST /api/workspace/call/dial. An empty number dials the focused contact.
func (h *WorkspaceHandler) Dial(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var req dialRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	number, err := s.Dial(req.Number)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"number": number})
}

func (h *WorkspaceHandler) Hangup(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	h.accepted(w, s.Hangup())
}

type toggleRequest struct {
	On bool `json:"on"`
}

func (h *WorkspaceHandler) Mute(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.accepted(w, s.Mute(req.On))
}

func (h *WorkspaceHandler) Hold(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.accepted(w, s.Hold(req.On))
}

type dtmfRequest struct {
	Digits string `json:"digits" validate:"required,max=32"`
}

func (h *WorkspaceHandler) DTMF(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var req dtmfRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.accepted(w, s.DTMF(req.Digits))
}

type volumeRequest struct {
	Volume int `json:"volume" validate:"min=0,max=100"`
}

func (h *WorkspaceHandler) Volume(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var req volumeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.accepted(w, s.Volume(req.Volume))
}

// accepted acknowledges a command forwarded to the softphone
func (h *WorkspaceHandler) accepted(w http.ResponseWriter, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *WorkspaceHandler) Gate(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Gate())
}

func (h *WorkspaceHandler) OpenDisposition(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	state, err := s.OpenDisposition()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type selectDispositionRequest struct {
	ID    string `json:"id" validate:"required"`
	Notes string `json:"notes,omitempty" validate:"max=2000"`
}

// SelectDisposition handles POST /api/workspace/disposition/select. A branch or a
// scheduling outcome answers with the gate state; a final outcome with the Outcome.
func (h *WorkspaceHandler) SelectDisposition(w http.ResponseWriter, r *http.Request) {
	s, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	var req selectDispositionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	outcome, err := s.SelectDisposition(ctx, req.ID, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	if outcome == nil {
		writeJSON(w, http.StatusOK, map[string]any{"gate": s.Gate()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gate": s.Gate(), "outcome": outcome})
}

type scheduleRequest struct {
	At           time.Time `json:"at" validate:"required"`
	AssignToSelf bool      `json:"assignToSelf"`
	Notes        string    `json:"notes,omitempty" validate:"max=2000"`
}

func (h *WorkspaceHandler) ConfirmSchedule(w http.ResponseWriter, r *http.Request) {
	s, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	var req scheduleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	outcome, err := s.ConfirmSchedule(ctx, req.At, req.AssignToSelf, req.Notes)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"gate": s.Gate(), "outcome": outcome})
}

func (h *WorkspaceHandler) DispositionBack(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	state, err := s.DispositionBack()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *WorkspaceHandler) DismissDisposition(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	if err := s.DismissDisposition(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Gate())
}

type emailRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required"`
}

func (h *WorkspaceHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	s, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	var req emailRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.SendEmail(ctx, req.Subject, req.Body); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "email sent"})
}

type smsRequest struct {
	Body string `json:"body" validate:"required"`
}

func (h *WorkspaceHandler) SendSMS(w http.ResponseWriter, r *http.Request) {
	s, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	var req smsRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	segments, err := s.SendSMS(ctx, req.Body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "sms sent", "segments": segments})
}

type noteRequest struct {
	Text string `json:"text" validate:"required"`
}

func (h *WorkspaceHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var req noteRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	entry, err := s.AddNote(req.Text)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *WorkspaceHandler) History(w http.ResponseWriter, r *http.Request) {
	s, ctx, ok := h.session(w, r)
	if !ok {
		return
	}
	entries, err := s.History(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []types.TimelineEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

type scriptAnswerRequest struct {
	ElementID string   `json:"elementId" validate:"required"`
	Values    []string `json:"values"`
}

func (h *WorkspaceHandler) ScriptAnswer(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	var req scriptAnswerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	h.respond(w, s, s.ScriptAnswer(req.ElementID, req.Values))
}

func (h *WorkspaceHandler) ScriptNext(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	moved, err := s.ScriptNext()
	h.scriptMoved(w, s, moved, err)
}

func (h *WorkspaceHandler) ScriptBack(w http.ResponseWriter, r *http.Request) {
	s, _, ok := h.session(w, r)
	if !ok {
		return
	}
	moved, err := s.ScriptBack()
	h.scriptMoved(w, s, moved, err)
}

func (h *WorkspaceHandler) scriptMoved(w http.ResponseWriter, s *workspace.Session, moved bool, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moved": moved, "script": s.Snapshot().Script})
}
