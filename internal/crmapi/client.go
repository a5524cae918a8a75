// Package crmapi is the HTTP client for the CRM REST backend.
package crmapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
)

type ctxKey string

const tokenKey ctxKey = "crm_token"

// WithToken attaches the caller's bearer token to outgoing requests made with ctx
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// Config configures the client
type Config struct {
	BaseURL string
	Token   string // service token used when the context carries none
	Timeout time.Duration
}

// Client talks to the CRM backend
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
}

// New creates a client
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  logger.With().Str("component", "crmapi").Logger(),
	}
}

// do sends a JSON request and decodes the JSON response into out when out is non-nil.
// Non-2xx responses become errors formatted "<status>: <body>".
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.tokenFor(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Upstream("", fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("CRM request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return statusError(resp.StatusCode, raw)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Upstream("", fmt.Errorf("failed to decode %s %s: %w", method, path, err))
	}
	return nil
}

func (c *Client) tokenFor(ctx context.Context) string {
	if token, ok := ctx.Value(tokenKey).(string); ok && token != "" {
		return token
	}
	return c.token
}

func statusError(status int, body []byte) error {
	err := fmt.Errorf("%d: %s", status, bytes.TrimSpace(body))
	kind := apperr.KindUpstream
	switch status {
	case http.StatusUnauthorized:
		kind = apperr.KindUnauthorized
	case http.StatusForbidden:
		kind = apperr.KindForbidden
	case http.StatusNotFound:
		kind = apperr.KindNotFound
	case http.StatusConflict:
		kind = apperr.KindConflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = apperr.KindValidation
	}
	return apperr.Wrap(kind, "", err)
}
