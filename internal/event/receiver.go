package event

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/ingestion"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// TokenHeader carries the PBX webhook secret
const TokenHeader = "X-Webhook-Token"

// Receiver handles call state webhooks posted by the PBX
type Receiver struct {
	processor      ingestion.EventProcessor
	validate       *validator.Validate
	token          string
	logger         zerolog.Logger
	eventsReceived int64
	eventsRejected int64
	lastReceived   time.Time
	mu             sync.RWMutex
}

// NewReceiver creates a new webhook receiver; an empty token disables the secret check
func NewReceiver(processor ingestion.EventProcessor, token string, logger zerolog.Logger) *Receiver {
	return &Receiver{
		processor: processor,
		validate:  validator.New(),
		token:     token,
		logger:    logger.With().Str("component", "telephony-webhook").Logger(),
	}
}

// HandleEvent receives one call state change
func (r *Receiver) HandleEvent(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.token != "" && subtle.ConstantTimeCompare([]byte(req.Header.Get(TokenHeader)), []byte(r.token)) != 1 {
		http.Error(w, "invalid webhook token", http.StatusUnauthorized)
		return
	}

	var ev types.CallEvent
	if err := json.NewDecoder(req.Body).Decode(&ev); err != nil {
		r.logger.Error().Err(err).Msg("failed to decode call event")
		r.reject(w, http.StatusBadRequest, "invalid event")
		return
	}
	if err := r.validate.Struct(ev); err != nil {
		r.reject(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ev.State.Valid() {
		r.reject(w, http.StatusBadRequest, "unknown call state "+string(ev.State))
		return
	}

	if err := r.processor.ProcessCallState(&ev); err != nil {
		r.reject(w, apperr.HTTPStatus(err), apperr.ExtractMessage(err))
		return
	}

	count := atomic.AddInt64(&r.eventsReceived, 1)
	r.mu.Lock()
	r.lastReceived = time.Now()
	r.mu.Unlock()

	if count%1000 == 0 {
		r.logger.Info().Int64("total_received", count).Msg("call events received")
	}

	w.WriteHeader(http.StatusAccepted)
}

// GetStats returns receiver statistics
func (r *Receiver) GetStats(w http.ResponseWriter, req *http.Request) {
	r.mu.RLock()
	lastReceived := r.lastReceived
	r.mu.RUnlock()

	stats := map[string]interface{}{
		"events_received": atomic.LoadInt64(&r.eventsReceived),
		"events_rejected": atomic.LoadInt64(&r.eventsRejected),
		"last_received":   lastReceived,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}

func (r *Receiver) reject(w http.ResponseWriter, status int, msg string) {
	atomic.AddInt64(&r.eventsRejected, 1)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
