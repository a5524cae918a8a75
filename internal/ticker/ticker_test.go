package ticker

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

type staticFrames map[string]types.ClockFrame

func (f staticFrames) ClockFrames() map[string]types.ClockFrame { return f }

type recordingSender struct {
	mu        sync.Mutex
	connected map[string]bool
	sent      map[string][]any
}

func newRecordingSender(connected ...string) *recordingSender {
	s := &recordingSender{connected: make(map[string]bool), sent: make(map[string][]any)}
	for _, id := range connected {
		s.connected[id] = true
	}
	return s
}

func (s *recordingSender) SendToAgent(agentID string, msg any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected[agentID] {
		return errors.New("agent not connected")
	}
	s.sent[agentID] = append(s.sent[agentID], msg)
	return nil
}

func (s *recordingSender) count(agentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent[agentID])
}

func frames() staticFrames {
	return staticFrames{
		"a1": {Type: "clock", Status: types.StatusAvailable, WorkTime: "00:10:00"},
		"a2": {Type: "clock", Status: types.StatusBreak, WorkTime: "01:00:00"},
	}
}

func TestNewTicker(t *testing.T) {
	logger := zerolog.New(&bytes.Buffer{})
	sender := newRecordingSender()
	ticker := NewTicker(frames(), sender, 1*time.Second, logger)

	if ticker == nil {
		t.Fatal("expected ticker to be created")
	}

	if ticker.interval != 1*time.Second {
		t.Errorf("expected interval 1s, got %v", ticker.interval)
	}
}

func TestTickSkipsDisconnectedAgents(t *testing.T) {
	sender := newRecordingSender("a1")
	ticker := NewTicker(frames(), sender, time.Second, zerolog.Nop())

	if sent := ticker.Tick(); sent != 1 {
		t.Errorf("expected 1 frame sent, got %d", sent)
	}
	frame, ok := sender.sent["a1"][0].(types.ClockFrame)
	if !ok || frame.WorkTime != "00:10:00" {
		t.Errorf("unexpected frame: %+v", sender.sent["a1"])
	}
	if sender.count("a2") != 0 {
		t.Error("expected no frame for disconnected agent")
	}
}

func TestTickerStart(t *testing.T) {
	sender := newRecordingSender("a1", "a2")
	ticker := NewTicker(frames(), sender, 50*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	done := make(chan bool)
	go func() {
		ticker.Start(ctx)
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("ticker did not stop after context cancel")
	}

	if sender.count("a1") == 0 {
		t.Error("expected frames to be pushed while running")
	}
}

func TestTickerStopsOnContextCancel(t *testing.T) {
	ticker := NewTicker(frames(), newRecordingSender(), 100*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan bool)
	go func() {
		ticker.Start(ctx)
		done <- true
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Error("ticker did not stop within timeout after context cancel")
	}
}
