package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry %q: %v", buf.String(), err)
	}
	return entry
}

func TestLoggerRecordsCompletedRequest(t *testing.T) {
	var buf bytes.Buffer
	handler := Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/campaigns", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	entry := decodeEntry(t, &buf)
	if entry["method"] != "GET" {
		t.Errorf("expected method GET, got %v", entry["method"])
	}
	if entry["path"] != "/api/campaigns" {
		t.Errorf("expected path /api/campaigns, got %v", entry["path"])
	}
	if entry["status"] != float64(200) {
		t.Errorf("implicit WriteHeader should log 200, got %v", entry["status"])
	}
	if entry["bytes"] != float64(len(`{"status":"ok"}`)) {
		t.Errorf("unexpected byte count %v", entry["bytes"])
	}
	if entry["level"] != "info" || entry["message"] != "request completed" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestLoggerServerErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	handler := Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/invoices", nil))

	entry := decodeEntry(t, &buf)
	if entry["status"] != float64(502) {
		t.Errorf("expected status 502, got %v", entry["status"])
	}
	if entry["level"] != "error" {
		t.Errorf("expected error level for 5xx, got %v", entry["level"])
	}
}

func TestLoggerHealthIsDebug(t *testing.T) {
	var buf bytes.Buffer
	handler := Logger(zerolog.New(&buf).Level(zerolog.InfoLevel))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	if buf.Len() != 0 {
		t.Errorf("health checks should stay below info, got %q", buf.String())
	}
}

func TestEndpointUsesRoutePattern(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Post("/api/agents/{agentId}/logout", func(w http.ResponseWriter, req *http.Request) {
		got = endpoint(req)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/agents/agent-42/logout", nil))

	if got != "POST /api/agents/{agentId}/logout" {
		t.Errorf("expected route pattern label, got %q", got)
	}
}

func TestEndpointWithoutRouter(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	if got := endpoint(req); got != "GET /metrics" {
		t.Errorf("expected raw path label, got %q", got)
	}
}
