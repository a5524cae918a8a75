package cache

import (
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/clock"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/dennisdiepolder/monti/agentdesk/internal/workspace"
)

func newTracker() (*PresenceTracker, *clock.Fake) {
	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	return NewPresenceTracker(clk), clk
}

func TestPresenceRegisterAndHeartbeat(t *testing.T) {
	tracker, clk := newTracker()

	if tracker.Heartbeat(&types.AgentHeartbeat{AgentID: "a1"}) {
		t.Error("expected heartbeat from unknown agent to be ignored")
	}

	tracker.Register(&types.AgentRegister{AgentID: "a1", Name: "Jana"})
	if !tracker.Connected("a1") {
		t.Fatal("expected a1 to be connected after register")
	}

	clk.Advance(5 * time.Second)
	if !tracker.Heartbeat(&types.AgentHeartbeat{AgentID: "a1"}) {
		t.Error("expected heartbeat to be accepted")
	}
	p, _ := tracker.Get("a1")
	if !p.LastHeartbeat.Equal(clk.Now()) {
		t.Errorf("expected heartbeat at %v, got %v", clk.Now(), p.LastHeartbeat)
	}
	if p.Name != "Jana" {
		t.Errorf("expected name Jana, got %s", p.Name)
	}
}

func TestPresenceCheckStale(t *testing.T) {
	tracker, clk := newTracker()
	tracker.Register(&types.AgentRegister{AgentID: "a1"})
	tracker.Register(&types.AgentRegister{AgentID: "a2"})

	clk.Advance(4 * time.Second)
	tracker.Heartbeat(&types.AgentHeartbeat{AgentID: "a2"})
	clk.Advance(3 * time.Second)

	if marked := tracker.CheckStale(); marked != 1 {
		t.Errorf("expected 1 stale agent, got %d", marked)
	}
	connected, stale, disconnected := tracker.GetConnectionStats()
	if connected != 1 || stale != 1 || disconnected != 0 {
		t.Errorf("unexpected stats: connected=%d stale=%d disconnected=%d", connected, stale, disconnected)
	}

	// a heartbeat revives a stale softphone
	tracker.Heartbeat(&types.AgentHeartbeat{AgentID: "a1"})
	if !tracker.Connected("a1") {
		t.Error("expected a1 connected again")
	}
}

func TestPresenceAnnotate(t *testing.T) {
	tracker, _ := newTracker()
	tracker.Register(&types.AgentRegister{AgentID: "a1"})

	rows := []types.AgentInfo{{AgentID: "a1"}, {AgentID: "a2"}}
	tracker.Annotate(rows)

	if rows[0].ConnectionStatus != types.ConnConnected {
		t.Errorf("expected a1 connected, got %s", rows[0].ConnectionStatus)
	}
	if rows[0].LastHeartbeat.IsZero() {
		t.Error("expected a1 heartbeat to be set")
	}
	if rows[1].ConnectionStatus != types.ConnDisconnected {
		t.Errorf("expected a2 disconnected, got %s", rows[1].ConnectionStatus)
	}
}

func TestPresenceRemoveDisconnectedKeepsShift(t *testing.T) {
	tracker, clk := newTracker()
	tracker.Register(&types.AgentRegister{AgentID: "a1"})
	tracker.Register(&types.AgentRegister{AgentID: "a2"})
	tracker.OnSessionStart(workspace.Agent{ID: "a2", Name: "Peter"})

	tracker.SetConnected("a1", false)
	tracker.SetConnected("a2", false)
	clk.Advance(2 * time.Minute)

	if removed := tracker.RemoveDisconnected(time.Minute); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, ok := tracker.Get("a2"); !ok {
		t.Error("expected agent on shift to be kept")
	}

	tracker.OnSessionEnd(workspace.Agent{ID: "a2"})
	if removed := tracker.RemoveDisconnected(time.Minute); removed != 1 {
		t.Errorf("expected a2 removed after shift end, got %d", removed)
	}
	if tracker.Count() != 0 {
		t.Errorf("expected empty tracker, got %d", tracker.Count())
	}
}

func TestEventCache(t *testing.T) {
	c := NewEventCache()
	c.Add(types.CallEvent{AgentID: "a1", State: types.CallRinging})
	c.Add(types.CallEvent{AgentID: "a1", State: types.CallActive})

	if c.Size() != 2 {
		t.Errorf("expected size 2, got %d", c.Size())
	}
	events := c.GetAndClear()
	if len(events) != 2 || events[1].State != types.CallActive {
		t.Errorf("unexpected events: %+v", events)
	}
	if c.Size() != 0 {
		t.Errorf("expected empty cache, got %d", c.Size())
	}
}
