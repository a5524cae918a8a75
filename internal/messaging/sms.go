package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
)

// SegmentLength is the number of characters billed as one text message
const SegmentLength = 160

// SMS is one outgoing text message
type SMS struct {
	To   string `json:"to" validate:"required"`
	Body string `json:"text" validate:"required"`
}

// SMSSender delivers text messages
type SMSSender interface {
	SendSMS(ctx context.Context, msg SMS) error
}

// Segments returns how many messages a body is billed as, at least one
func Segments(body string) int {
	n := utf8.RuneCountInString(body)
	if n == 0 {
		return 1
	}
	return (n + SegmentLength - 1) / SegmentLength
}

// GatewayConfig configures the HTTP SMS gateway
type GatewayConfig struct {
	URL       string
	Token     string
	Sender    string
	PerSecond float64
	Burst     int
	Timeout   time.Duration
}

// HTTPGateway posts messages to an SMS provider, rate limited
type HTTPGateway struct {
	cfg     GatewayConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewHTTPGateway creates a gateway client
func NewHTTPGateway(cfg GatewayConfig, logger zerolog.Logger) *HTTPGateway {
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = 5
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPGateway{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.PerSecond), cfg.Burst),
		logger:  logger.With().Str("component", "sms").Logger(),
	}
}

type gatewayRequest struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Text string `json:"text"`
}

func (g *HTTPGateway) SendSMS(ctx context.Context, msg SMS) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("sms rate limit: %w", err)
	}

	body, err := json.Marshal(gatewayRequest{From: g.cfg.Sender, To: msg.To, Text: msg.Body})
	if err != nil {
		return fmt.Errorf("failed to marshal sms: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+g.cfg.Token)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return apperr.Upstream("sms could not be sent", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return apperr.Upstream("sms could not be sent", fmt.Errorf("%d: %s", resp.StatusCode, bytes.TrimSpace(raw)))
	}

	g.logger.Info().Str("to", msg.To).Int("segments", Segments(msg.Body)).Msg("SMS sent")
	return nil
}

// LogSMSSender logs text messages instead of sending them
type LogSMSSender struct {
	logger zerolog.Logger
}

func NewLogSMSSender(logger zerolog.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger.With().Str("component", "sms").Logger()}
}

func (s *LogSMSSender) SendSMS(_ context.Context, msg SMS) error {
	s.logger.Info().Str("to", msg.To).Int("segments", Segments(msg.Body)).Msg("SMS not sent (gateway disabled)")
	return nil
}
