package crmapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/", Token: "service"}, zerolog.Nop())
}

func TestStatusErrorFormat(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"Invalid callback date"}`))
	})

	_, err := c.UpdateCampaignContact(context.Background(), "cc-1", types.ContactPatch{})
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != `422: {"error":"Invalid callback date"}` {
		t.Errorf("unexpected error text %q", err.Error())
	}
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation kind, got %s", apperr.KindOf(err))
	}
	if msg := apperr.ExtractMessage(err); msg != "Invalid callback date" {
		t.Errorf("unexpected extracted message %q", msg)
	}
}

func TestCheckAuthUnauthorized(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	if err := c.CheckAuth(context.Background()); !apperr.Is(err, apperr.KindUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestTokenForwarding(t *testing.T) {
	var got []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = append(got, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]types.Campaign{})
	})

	_, _ = c.ListCampaigns(context.Background())
	_, _ = c.ListCampaigns(WithToken(context.Background(), "agent-token"))

	if len(got) != 2 || got[0] != "Bearer service" || got[1] != "Bearer agent-token" {
		t.Errorf("unexpected auth headers %v", got)
	}
}

func TestPatchBody(t *testing.T) {
	var method, path string
	var patch types.ContactPatch
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&patch)
		_ = json.NewEncoder(w).Encode(types.CampaignContact{ID: "cc-1", Status: patch.Status})
	})

	out, err := c.UpdateCampaignContact(context.Background(), "cc-1", types.ContactPatch{
		Status:          types.ContactCompleted,
		DispositionCode: "SALE",
		AttemptCount:    3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if method != http.MethodPatch || path != "/api/campaign-contacts/cc-1" {
		t.Errorf("unexpected request %s %s", method, path)
	}
	if patch.DispositionCode != "SALE" || patch.AttemptCount != 3 {
		t.Errorf("unexpected patch %+v", patch)
	}
	if out.Status != types.ContactCompleted {
		t.Errorf("unexpected response %+v", out)
	}
}

func TestGenerateNumber(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/number-ranges/nr-1/generate" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"number":"FA-2026-0042"}`))
	})
	number, err := c.GenerateNumber(context.Background(), "nr-1")
	if err != nil || number != "FA-2026-0042" {
		t.Errorf("unexpected result %q, %v", number, err)
	}
}

func TestLoadCampaign(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/campaigns/camp-1":
			_ = json.NewEncoder(w).Encode(types.Campaign{ID: "camp-1", ScriptID: "s-1"})
		case "/api/campaigns/camp-1/contacts":
			_ = json.NewEncoder(w).Encode([]types.CampaignContact{{ID: "cc-1"}, {ID: "cc-2"}})
		case "/api/campaigns/camp-1/dispositions":
			_ = json.NewEncoder(w).Encode([]types.Disposition{{ID: "d-1", IsActive: true}})
		case "/api/scripts/s-1":
			_ = json.NewEncoder(w).Encode(types.Script{ID: "s-1"})
		default:
			http.NotFound(w, r)
		}
	})

	bundle, err := c.LoadCampaign(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bundle.Contacts) != 2 || len(bundle.Dispositions) != 1 || bundle.Script == nil {
		t.Errorf("incomplete bundle %+v", bundle)
	}
}

func TestLoadCampaignFailure(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/campaigns/camp-1":
			_ = json.NewEncoder(w).Encode(types.Campaign{ID: "camp-1"})
		case "/api/campaigns/camp-1/contacts":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(`[]`))
		}
	})

	if _, err := c.LoadCampaign(context.Background(), "camp-1"); !apperr.Is(err, apperr.KindUpstream) {
		t.Errorf("expected upstream error, got %v", err)
	}
}
