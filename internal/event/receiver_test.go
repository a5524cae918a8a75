package event

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

type stubProcessor struct {
	calls []types.CallEvent
	err   error
}

func (p *stubProcessor) ProcessRegister(*types.AgentRegister)   {}
func (p *stubProcessor) ProcessHeartbeat(*types.AgentHeartbeat) {}
func (p *stubProcessor) ProcessCallState(ev *types.CallEvent) error {
	p.calls = append(p.calls, *ev)
	return p.err
}

func post(r *Receiver, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/internal/telephony/events", strings.NewReader(body))
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	rec := httptest.NewRecorder()
	r.HandleEvent(rec, req)
	return rec
}

func TestHandleEventAccepted(t *testing.T) {
	proc := &stubProcessor{}
	r := NewReceiver(proc, "", zerolog.Nop())

	rec := post(r, `{"agentId":"a1","callId":"c1","state":"ringing"}`, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(proc.calls) != 1 || proc.calls[0].State != types.CallRinging {
		t.Errorf("expected one ringing event, got %+v", proc.calls)
	}
}

func TestHandleEventValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"agentId":`},
		{"missing agent", `{"state":"ringing"}`},
		{"missing state", `{"agentId":"a1"}`},
		{"unknown state", `{"agentId":"a1","state":"exploded"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &stubProcessor{}
			r := NewReceiver(proc, "", zerolog.Nop())

			rec := post(r, tt.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
			if len(proc.calls) != 0 {
				t.Error("invalid events must not reach the processor")
			}
		})
	}
}

func TestHandleEventToken(t *testing.T) {
	proc := &stubProcessor{}
	r := NewReceiver(proc, "s3cret", zerolog.Nop())
	body := `{"agentId":"a1","state":"active"}`

	if rec := post(r, body, ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
	if rec := post(r, body, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", rec.Code)
	}
	if rec := post(r, body, "s3cret"); rec.Code != http.StatusAccepted {
		t.Errorf("expected 202 with token, got %d", rec.Code)
	}
}

func TestHandleEventProcessorError(t *testing.T) {
	proc := &stubProcessor{err: apperr.NotFound("no workspace session for agent a1")}
	r := NewReceiver(proc, "", zerolog.Nop())

	rec := post(r, `{"agentId":"a1","state":"ended"}`, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body["error"] != "no workspace session for agent a1" {
		t.Errorf("unexpected error message: %q", body["error"])
	}
}

func TestHandleEventMethodNotAllowed(t *testing.T) {
	r := NewReceiver(&stubProcessor{}, "", zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/internal/telephony/events", nil)
	rec := httptest.NewRecorder()
	r.HandleEvent(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestGetStats(t *testing.T) {
	r := NewReceiver(&stubProcessor{}, "", zerolog.Nop())
	post(r, `{"agentId":"a1","state":"ringing"}`, "")
	post(r, `{"agentId":"a1"}`, "")

	rec := httptest.NewRecorder()
	r.GetStats(rec, httptest.NewRequest(http.MethodGet, "/internal/telephony/stats", nil))

	var stats map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if stats["events_received"].(float64) != 1 {
		t.Errorf("expected 1 received, got %v", stats["events_received"])
	}
	if stats["events_rejected"].(float64) != 1 {
		t.Errorf("expected 1 rejected, got %v", stats["events_rejected"])
	}
}
