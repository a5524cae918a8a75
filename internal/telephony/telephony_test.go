package telephony

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer("sk")

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr apperr.Kind
	}{
		{"national", "0905 123 456", "+421905123456", apperr.KindUnknown},
		{"international", "+420 602 123 456", "+420602123456", apperr.KindUnknown},
		{"empty", "  ", "", apperr.KindPrecondition},
		{"garbage", "abc", "", apperr.KindValidation},
		{"too short", "123", "", apperr.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := n.Normalize(tt.input)
			if tt.wantErr != apperr.KindUnknown {
				if !apperr.Is(err, tt.wantErr) {
					t.Fatalf("expected %s error, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}

	if got := n.NormalizeE164(" abc "); got != "abc" {
		t.Errorf("lenient normalize should return trimmed input, got %q", got)
	}
}

type fakeSender struct {
	sent []any
	err  error
}

func (f *fakeSender) SendToAgent(agentID string, msg any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

func TestBridgeDial(t *testing.T) {
	sender := &fakeSender{}
	b := NewBridge(sender, NewNormalizer(""), zerolog.Nop())

	number, err := b.Dial("agent-1", "0905123456")
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	if number != "+421905123456" {
		t.Errorf("unexpected number %s", number)
	}
	cmd, ok := sender.sent[0].(types.CallCommand)
	if !ok || cmd.Action != types.ActionDial || cmd.Type != "call_command" {
		t.Errorf("unexpected command %+v", sender.sent[0])
	}
}

func TestBridgeValidation(t *testing.T) {
	sender := &fakeSender{}
	b := NewBridge(sender, NewNormalizer(""), zerolog.Nop())

	if err := b.DTMF("agent-1", "12a"); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := b.Volume("agent-1", 101); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if err := b.DTMF("agent-1", "12*#"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := b.Hold("agent-1", true); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got := sender.sent[len(sender.sent)-1].(types.CallCommand).Action; got != types.ActionHold {
		t.Errorf("expected hold, got %s", got)
	}
}

func TestBridgeDisconnected(t *testing.T) {
	b := NewBridge(&fakeSender{err: errors.New("agent not connected")}, NewNormalizer(""), zerolog.Nop())
	if err := b.Hangup("agent-1"); !apperr.Is(err, apperr.KindUpstream) {
		t.Errorf("expected upstream error, got %v", err)
	}
}
