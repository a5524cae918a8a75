package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dennisdiepolder/monti/agentdesk/internal/auth"
	"github.com/dennisdiepolder/monti/agentdesk/internal/storage"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

type fakeRegistry struct{ sessions map[string]bool }

func (f *fakeRegistry) Remove(_ context.Context, agentID string) bool {
	ok := f.sessions[agentID]
	delete(f.sessions, agentID)
	return ok
}

func (f *fakeRegistry) Count() int { return len(f.sessions) }

type fakeSockets struct{ dropped []string }

func (f *fakeSockets) ForceDisconnect(agentID, _ string) bool {
	f.dropped = append(f.dropped, agentID)
	return agentID == "agent-1"
}

type fakePresence struct{ n int }

func (f *fakePresence) Clear() int { return f.n }

type recordStore struct {
	*storage.NoopStore
	truncated bool
}

func (s *recordStore) GetAgentDispositions(_ context.Context, agentID, date string) ([]types.DispositionRecord, error) {
	return []types.DispositionRecord{{AgentID: agentID, DateKey: date, Code: "SALE"}}, nil
}

func (s *recordStore) TruncateAll(context.Context) error {
	s.truncated = true
	return nil
}

func adminRouter(claims *auth.Claims, store *recordStore, sockets *fakeSockets) http.Handler {
	h := NewAdminHandler(
		&fakeRegistry{sessions: map[string]bool{"agent-1": true}},
		sockets,
		&fakePresence{n: 3},
		store,
		zerolog.Nop(),
	)
	r := chi.NewRouter()
	r.Use(withClaims(claims))
	r.Route("/api", h.Routes)
	return r
}

func supervisorClaims() *auth.Claims {
	c := agentClaims("sup-1", "SK")
	c.Role = string(types.RoleSupervisor)
	return c
}

func TestAdminRoleChecks(t *testing.T) {
	store := &recordStore{NoopStore: storage.NewNoopStore()}

	tests := []struct {
		name   string
		claims *auth.Claims
		method string
		path   string
		status int
	}{
		{"agent cannot log out others", agentClaims("agent-2"), http.MethodPost, "/api/agents/agent-1/logout", http.StatusForbidden},
		{"agent cannot read dispositions", agentClaims("agent-2"), http.MethodGet, "/api/dispositions?date=2026-05-12", http.StatusForbidden},
		{"supervisor reads dispositions", supervisorClaims(), http.MethodGet, "/api/dispositions?date=2026-05-12", http.StatusOK},
		{"supervisor cannot wipe", supervisorClaims(), http.MethodPost, "/api/admin/wipe-records", http.StatusForbidden},
		{"admin wipes", auth.DevClaims(), http.MethodPost, "/api/admin/wipe-records", http.StatusOK},
		{"no claims", nil, http.MethodPost, "/api/admin/reset-presence", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, adminRouter(tt.claims, store, &fakeSockets{}), tt.method, tt.path, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
	assert.True(t, store.truncated)
}

func TestAdminLogout(t *testing.T) {
	sockets := &fakeSockets{}
	h := adminRouter(supervisorClaims(), &recordStore{NoopStore: storage.NewNoopStore()}, sockets)

	rec := do(t, h, http.MethodPost, "/api/agents/agent-1/logout", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["sessionEnded"])
	assert.Equal(t, true, body["disconnected"])

	rec = do(t, h, http.MethodPost, "/api/agents/ghost/logout", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, []string{"agent-1", "ghost"}, sockets.dropped)
}

func TestAdminDispositionsDate(t *testing.T) {
	h := adminRouter(supervisorClaims(), &recordStore{NoopStore: storage.NewNoopStore()}, &fakeSockets{})

	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/agents/agent-1/dispositions", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/api/agents/agent-1/dispositions?date=12.05.2026", nil).Code)

	rec := do(t, h, http.MethodGet, "/api/agents/agent-1/dispositions?date=2026-05-12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var records []types.DispositionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "agent-1", records[0].AgentID)
	assert.Equal(t, "2026-05-12", records[0].DateKey)
	assert.Equal(t, "SALE", records[0].Code)

	rec = do(t, h, http.MethodGet, "/api/agents/agent-1/shifts", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

type staticSnapshot types.RosterSnapshot

func (s staticSnapshot) Snapshot() types.RosterSnapshot { return types.RosterSnapshot(s) }

func TestRosterFilteredByCountry(t *testing.T) {
	agents := []types.AgentInfo{
		{AgentID: "a1", Country: "SK", Status: types.StatusAvailable},
		{AgentID: "a2", Country: "CZ", Status: types.StatusBreak},
		{AgentID: "a3", Status: types.StatusBusy},
	}
	snapshot := staticSnapshot{Type: "roster", Timestamp: time.Now(), Summary: types.Summarize(agents), Agents: agents}
	h := NewRosterHandler(snapshot, zerolog.Nop())

	serve := func(claims *auth.Claims) types.RosterSnapshot {
		r := chi.NewRouter()
		r.Use(withClaims(claims))
		r.Get("/api/roster", h.GetRoster)
		rec := do(t, r, http.MethodGet, "/api/roster", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var out types.RosterSnapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	assert.Len(t, serve(auth.DevClaims()).Agents, 3)

	sk := serve(supervisorClaims())
	require.Len(t, sk.Agents, 1)
	assert.Equal(t, "a1", sk.Agents[0].AgentID)
	assert.Equal(t, 1, sk.Summary.TotalAgents)

	pl := agentClaims("sup-pl", "PL")
	pl.Role = string(types.RoleSupervisor)
	none := serve(pl)
	assert.Empty(t, none.Agents)
	assert.Equal(t, 0, none.Summary.TotalAgents)
}

func TestQRPreviewAndPNG(t *testing.T) {
	r := chi.NewRouter()
	r.Route("/api", NewQRHandler(128, zerolog.Nop()).Routes)

	rec := do(t, r, http.MethodPost, "/api/qr/preview", map[string]string{
		"iban":           "SK31 1200 0000 1987 4263 7541",
		"currency":       "EUR",
		"variableSymbol": "20260042",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "SPD*1.0*ACC:"+testIBAN+"*CC:EUR*X-VS:20260042", body["spd"])
	assert.Equal(t, "", body["epc"], "epc needs a recipient name")

	rec = do(t, r, http.MethodPost, "/api/qr/png", map[string]string{"payload": body["spd"].(string)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())

	rec = do(t, r, http.MethodPost, "/api/qr/png", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
