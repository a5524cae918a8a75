package websocket

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/auth"
	"github.com/dennisdiepolder/monti/agentdesk/internal/cache"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

func TestNewHub(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	if hub == nil {
		t.Fatal("expected hub to be created")
	}

	if hub.clients == nil {
		t.Error("expected clients map to be initialized")
	}

	if hub.broadcast == nil {
		t.Error("expected broadcast channel to be initialized")
	}

	if hub.register == nil {
		t.Error("expected register channel to be initialized")
	}

	if hub.unregister == nil {
		t.Error("expected unregister channel to be initialized")
	}
}

func TestHubClientCount(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}

	hub.mu.Lock()
	hub.clients[&Client{id: "test1"}] = true
	hub.clients[&Client{id: "test2"}] = true
	hub.mu.Unlock()

	if hub.ClientCount() != 2 {
		t.Errorf("expected 2 clients, got %d", hub.ClientCount())
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)
	go hub.Run()

	client := &Client{
		id:   "test-client",
		hub:  hub,
		send: make(chan []byte, 1),
	}

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 1 {
		t.Errorf("expected 1 client after register, got %d", hub.ClientCount())
	}

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after unregister, got %d", hub.ClientCount())
	}
}

func TestHubBroadcastToMultipleClients(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	hub := NewHub(logger)
	go hub.Run()

	client1 := &Client{id: "client1", hub: hub, send: make(chan []byte, 10)}
	client2 := &Client{id: "client2", hub: hub, send: make(chan []byte, 10)}

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	message := []byte("test broadcast")
	hub.Broadcast(message)

	for name, c := range map[string]*Client{"client1": client1, "client2": client2} {
		select {
		case msg := <-c.send:
			if string(msg) != string(message) {
				t.Errorf("%s expected %s, got %s", name, message, msg)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("%s did not receive message", name)
		}
	}
}

func rosterFixture() *types.RosterSnapshot {
	agents := []types.AgentInfo{
		{AgentID: "a1", Country: "SK", Status: types.StatusAvailable},
		{AgentID: "a2", Country: "CZ", Status: types.StatusBreak},
		{AgentID: "a3", Country: "SK", Status: types.StatusBusy, Alerts: []types.AgentAlert{{Rule: "x"}}},
		{AgentID: "a4", Status: types.StatusAvailable},
	}
	return &types.RosterSnapshot{
		Type:      "roster",
		Timestamp: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Summary:   types.Summarize(agents),
		Agents:    agents,
	}
}

func TestFilterRoster(t *testing.T) {
	snapshot := rosterFixture()

	admin := &Client{claims: &auth.Claims{Role: "admin"}}
	if got := admin.FilterRoster(snapshot); got != snapshot {
		t.Error("expected admin to receive the snapshot unchanged")
	}

	sk := &Client{claims: &auth.Claims{Role: "supervisor", Countries: []string{"SK"}}}
	got := sk.FilterRoster(snapshot)
	if got == nil || len(got.Agents) != 2 {
		t.Fatalf("expected 2 SK agents, got %+v", got)
	}
	if got.Summary.TotalAgents != 2 || got.Summary.StatusBreakdown[types.StatusBusy] != 1 {
		t.Errorf("expected recalculated summary, got %+v", got.Summary)
	}
	if got.Summary.AlertCount != 1 {
		t.Errorf("expected 1 alert, got %d", got.Summary.AlertCount)
	}

	at := &Client{claims: &auth.Claims{Role: "supervisor", Countries: []string{"AT"}}}
	if at.FilterRoster(snapshot) != nil {
		t.Error("expected nil roster for a supervisor without visible agents")
	}
}

func TestHubBroadcastFiltersRoster(t *testing.T) {
	hub := NewHub(zerolog.Nop())
	go hub.Run()

	sk := &Client{id: "sk", hub: hub, send: make(chan []byte, 4), claims: &auth.Claims{Role: "supervisor", Countries: []string{"SK"}}}
	at := &Client{id: "at", hub: hub, send: make(chan []byte, 4), claims: &auth.Claims{Role: "supervisor", Countries: []string{"AT"}}}
	hub.register <- sk
	hub.register <- at
	time.Sleep(10 * time.Millisecond)

	data, _ := json.Marshal(rosterFixture())
	hub.Broadcast(data)

	select {
	case msg := <-sk.send:
		var got types.RosterSnapshot
		if err := json.Unmarshal(msg, &got); err != nil {
			t.Fatalf("failed to decode roster: %v", err)
		}
		if len(got.Agents) != 2 {
			t.Errorf("expected 2 agents for SK supervisor, got %d", len(got.Agents))
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("SK supervisor did not receive roster")
	}

	select {
	case msg := <-at.send:
		t.Errorf("AT supervisor should not receive roster, got %s", msg)
	case <-time.After(20 * time.Millisecond):
	}
}

type recordingProcessor struct {
	mu        sync.Mutex
	registers []types.AgentRegister
	calls     []types.CallEvent
	err       error
}

func (p *recordingProcessor) ProcessRegister(reg *types.AgentRegister) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registers = append(p.registers, *reg)
}

func (p *recordingProcessor) ProcessHeartbeat(*types.AgentHeartbeat) {}

func (p *recordingProcessor) ProcessCallState(ev *types.CallEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, *ev)
	return p.err
}

func (p *recordingProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func newAgentClient(hub *AgentHub, agentID string) *AgentClient {
	return &AgentClient{
		agentID: agentID,
		hub:     hub,
		send:    make(chan []byte, 8),
		logger:  zerolog.Nop(),
		done:    make(chan struct{}),
	}
}

func TestAgentClientUsesSocketIdentity(t *testing.T) {
	hub := NewAgentHub(cache.NewPresenceTracker(nil), &recordingProcessor{}, zerolog.Nop())
	client := newAgentClient(hub, "agent-7")

	client.handleMessage([]byte(`{"type":"register","agentId":"someone-else","name":"Jana"}`))
	reg := <-hub.agentRegister
	if reg.AgentID != "agent-7" || reg.Name != "Jana" {
		t.Errorf("unexpected register: %+v", reg)
	}

	var ack types.ServerAck
	if err := json.Unmarshal(<-client.send, &ack); err != nil || ack.Type != "ack" {
		t.Errorf("expected ack, got %+v (%v)", ack, err)
	}

	client.handleMessage([]byte(`{"type":"call_state","agentId":"someone-else","state":"ringing","number":"+421905123456"}`))
	ev := <-hub.callState
	if ev.AgentID != "agent-7" || ev.State != types.CallRinging || ev.Number != "+421905123456" {
		t.Errorf("unexpected call event: %+v", ev)
	}
}

func TestAgentHubSendToAgent(t *testing.T) {
	tracker := cache.NewPresenceTracker(nil)
	hub := NewAgentHub(tracker, &recordingProcessor{}, zerolog.Nop())
	go hub.Run()

	if err := hub.SendToAgent("agent-7", types.Toast{Type: "toast"}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	client := newAgentClient(hub, "agent-7")
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if !tracker.Connected("agent-7") {
		t.Error("expected presence to be connected")
	}
	if err := hub.SendToAgent("agent-7", types.Toast{Type: "toast", Title: "hi"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var toast types.Toast
	if err := json.Unmarshal(<-client.send, &toast); err != nil || toast.Title != "hi" {
		t.Errorf("unexpected toast: %+v (%v)", toast, err)
	}

	if !hub.ForceDisconnect("agent-7", "logged out by supervisor") {
		t.Error("expected force disconnect to find the agent")
	}
	if hub.AgentCount() != 0 {
		t.Errorf("expected 0 agents, got %d", hub.AgentCount())
	}
	if tracker.Connected("agent-7") {
		t.Error("expected presence to be disconnected")
	}
}

func TestAgentHubRejectedCallStateToasts(t *testing.T) {
	proc := &recordingProcessor{err: errors.New("no workspace session for agent agent-7")}
	hub := NewAgentHub(cache.NewPresenceTracker(nil), proc, zerolog.Nop())
	go hub.Run()

	client := newAgentClient(hub, "agent-7")
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	client.handleMessage([]byte(`{"type":"call_state","state":"active"}`))

	select {
	case msg := <-client.send:
		var toast types.Toast
		if err := json.Unmarshal(msg, &toast); err != nil || toast.Level != types.ToastError {
			t.Errorf("expected error toast, got %s", msg)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected a toast for the rejected call state")
	}
	if proc.callCount() != 1 {
		t.Errorf("expected 1 processed call state, got %d", proc.callCount())
	}
}
