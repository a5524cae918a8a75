// Package softphone is a scripted stand-in for an agent's browser softphone. It
// connects to the agent socket, answers call commands with call_state reports
// and keeps the presence heartbeat going.
package softphone

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

const (
	heartbeatInterval = 2 * time.Second
	writeTimeout      = 10 * time.Second

	initialReconnectDelay = 1 * time.Second
	maxReconnectDelay     = 30 * time.Second
)

// Config configures one simulated softphone
type Config struct {
	ServerURL  string // http(s) base URL of the desk server
	Token      string // bearer token; empty when the server skips auth
	AgentID    string // sent as ?agentId=, honoured only when the server skips auth
	Name       string
	RingDelay  time.Duration // connecting -> ringing -> answered
	TalkTime   time.Duration // answered -> customer hangs up
	AnswerRate float64       // share of calls the customer picks up, 0..1
	Seed       int64
}

// Stats counts what the phone did
type Stats struct {
	Connects   int `json:"connects"`
	Heartbeats int `json:"heartbeats"`
	Calls      int `json:"calls"`
	Answered   int `json:"answered"`
	Commands   int `json:"commands"`
}

// Phone is one simulated softphone
type Phone struct {
	cfg    Config
	logger zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	call      *activeCall
	rng       *rand.Rand
	stats     Stats
	closed    bool
	forceDrop chan struct{}
}

type activeCall struct {
	id     string
	number string
	state  types.CallState
	cancel context.CancelFunc
}

// New creates a phone
func New(cfg Config, logger zerolog.Logger) *Phone {
	if cfg.RingDelay <= 0 {
		cfg.RingDelay = 2 * time.Second
	}
	if cfg.TalkTime <= 0 {
		cfg.TalkTime = 20 * time.Second
	}
	if cfg.AnswerRate <= 0 || cfg.AnswerRate > 1 {
		cfg.AnswerRate = 1
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	return &Phone{
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		forceDrop: make(chan struct{}, 1),
		logger:    logger.With().Str("component", "softphone").Str("agent_id", cfg.AgentID).Logger(),
	}
}

// Stats returns a copy of the counters
func (p *Phone) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Run keeps the phone connected until ctx is done or the server forces a disconnect
func (p *Phone) Run(ctx context.Context) error {
	reconnectDelay := initialReconnectDelay

	for {
		if p.isClosed() {
			return nil
		}

		if err := p.connect(ctx); err != nil {
			p.logger.Debug().Err(err).Dur("retry_in", reconnectDelay).Msg("connection failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reconnectDelay):
			}
			reconnectDelay *= 2
			if reconnectDelay > maxReconnectDelay {
				reconnectDelay = maxReconnectDelay
			}
			continue
		}
		reconnectDelay = initialReconnectDelay

		p.send(types.AgentRegister{Type: "register", AgentID: p.cfg.AgentID, Name: p.cfg.Name})
		p.runLoop(ctx)
		p.dropConn()

		if ctx.Err() != nil {
			p.Close()
			return ctx.Err()
		}
	}
}

// Close hangs up and stops reconnecting
func (p *Phone) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.call != nil {
		p.call.cancel()
		p.call = nil
	}
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *Phone) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// socketURL turns the server URL into the agent socket URL
func (p *Phone) socketURL() (string, error) {
	u, err := url.Parse(strings.TrimRight(p.cfg.ServerURL, "/") + "/ws/agent")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	if p.cfg.AgentID != "" {
		q := u.Query()
		q.Set("agentId", p.cfg.AgentID)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (p *Phone) connect(ctx context.Context) error {
	wsURL, err := p.socketURL()
	if err != nil {
		return err
	}
	header := http.Header{}
	if p.cfg.Token != "" {
		header.Set("Authorization", "Bearer "+p.cfg.Token)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.conn = conn
	p.stats.Connects++
	p.mu.Unlock()

	p.logger.Debug().Msg("websocket connected")
	return nil
}

func (p *Phone) dropConn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
	}
}

func (p *Phone) runLoop(ctx context.Context) {
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	p.mu.Lock()
	conn := p.conn
	p.mu.Unlock()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			p.handleIncoming(ctx, message)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case <-p.forceDrop:
			return
		case <-heartbeat.C:
			p.send(types.AgentHeartbeat{Type: "heartbeat", AgentID: p.cfg.AgentID, Timestamp: time.Now()})
			p.mu.Lock()
			p.stats.Heartbeats++
			p.mu.Unlock()
		}
	}
}

// handleIncoming processes messages from the server
func (p *Phone) handleIncoming(ctx context.Context, message []byte) {
	var msgType struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(message, &msgType); err != nil {
		return
	}

	switch msgType.Type {
	case "call_command":
		var cmd types.CallCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			return
		}
		p.mu.Lock()
		p.stats.Commands++
		p.mu.Unlock()
		p.handleCommand(ctx, cmd)

	case "force_disconnect":
		p.logger.Info().Msg("received force_disconnect")
		p.Close()
		select {
		case p.forceDrop <- struct{}{}:
		default:
		}

	case "ack", "clock", "toast":
		// informational
	}
}

func (p *Phone) handleCommand(ctx context.Context, cmd types.CallCommand) {
	switch cmd.Action {
	case types.ActionDial:
		p.dial(ctx, cmd.Number)

	case types.ActionHangup:
		p.endCall(types.HangupAgent)

	case types.ActionHold, types.ActionResume:
		p.mu.Lock()
		call := p.call
		if call == nil || (call.state != types.CallActive && call.state != types.CallOnHold) {
			p.mu.Unlock()
			return
		}
		call.state = types.CallActive
		if cmd.Action == types.ActionHold {
			call.state = types.CallOnHold
		}
		ev := types.CallEvent{CallID: call.id, State: call.state, Number: call.number}
		p.mu.Unlock()
		p.report(ev)

	default:
		p.logger.Debug().Str("action", string(cmd.Action)).Msg("command acknowledged")
	}
}

// dial starts a scripted call: connecting, ringing, then either answered and
// hung up by the customer after the talk time, or ended unanswered
func (p *Phone) dial(ctx context.Context, number string) {
	p.mu.Lock()
	if p.call != nil {
		p.mu.Unlock()
		p.logger.Warn().Str("number", number).Msg("dial ignored, call in progress")
		return
	}
	callCtx, cancel := context.WithCancel(ctx)
	call := &activeCall{id: uuid.NewString(), number: number, state: types.CallConnecting, cancel: cancel}
	p.call = call
	p.stats.Calls++
	answered := p.rng.Float64() < p.cfg.AnswerRate
	p.mu.Unlock()

	p.report(types.CallEvent{CallID: call.id, State: types.CallConnecting, Number: number})

	go func() {
		steps := []types.CallState{types.CallRinging}
		if answered {
			steps = append(steps, types.CallActive)
		}
		for _, state := range steps {
			select {
			case <-callCtx.Done():
				return
			case <-time.After(p.cfg.RingDelay):
			}
			if !p.advance(call, state) {
				return
			}
		}

		wait := p.cfg.TalkTime
		if !answered {
			wait = p.cfg.RingDelay
		}
		select {
		case <-callCtx.Done():
			return
		case <-time.After(wait):
		}
		p.endCall(types.HangupCustomer)
	}()
}

// advance moves call to state if it is still the current call
func (p *Phone) advance(call *activeCall, state types.CallState) bool {
	p.mu.Lock()
	if p.call != call {
		p.mu.Unlock()
		return false
	}
	call.state = state
	if state == types.CallActive {
		p.stats.Answered++
	}
	p.mu.Unlock()

	p.report(types.CallEvent{CallID: call.id, State: state, Number: call.number})
	return true
}

func (p *Phone) endCall(by types.HangupParty) {
	p.mu.Lock()
	call := p.call
	if call == nil {
		p.mu.Unlock()
		return
	}
	p.call = nil
	call.cancel()
	p.mu.Unlock()

	p.report(types.CallEvent{CallID: call.id, State: types.CallEnded, HungUpBy: by, Number: call.number})
}

func (p *Phone) report(ev types.CallEvent) {
	ev.AgentID = p.cfg.AgentID
	ev.Timestamp = time.Now()
	p.send(types.CallStateMessage{Type: "call_state", CallEvent: ev})
	p.logger.Debug().Str("call_id", ev.CallID).Str("state", string(ev.State)).Msg("call state reported")
}

func (p *Phone) send(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to marshal message")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil {
		return
	}
	p.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		p.logger.Debug().Err(err).Msg("write error")
	}
}
