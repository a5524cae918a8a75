package alerts

import (
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

func TestCheckAgentAlerts(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	ago := func(d time.Duration) *time.Time {
		at := now.Add(-d)
		return &at
	}

	tests := []struct {
		name     string
		agent    types.AgentInfo
		wantRule string
		wantSev  types.AlertSeverity
	}{
		{
			name:  "short wrap-up",
			agent: types.AgentInfo{Status: types.StatusWrapUp, WrapUpStart: ago(4 * time.Minute)},
		},
		{
			name:     "long wrap-up",
			agent:    types.AgentInfo{Status: types.StatusWrapUp, WrapUpStart: ago(6 * time.Minute)},
			wantRule: "wrap_up_long",
			wantSev:  types.SeverityWarning,
		},
		{
			name:     "wrap-up falls back to status start",
			agent:    types.AgentInfo{Status: types.StatusWrapUp, StatusStart: now.Add(-7 * time.Minute)},
			wantRule: "wrap_up_long",
			wantSev:  types.SeverityWarning,
		},
		{
			name:  "short break",
			agent: types.AgentInfo{Status: types.StatusBreak, BreakStart: ago(9 * time.Minute)},
		},
		{
			name:     "long break",
			agent:    types.AgentInfo{Status: types.StatusBreak, BreakStart: ago(11 * time.Minute)},
			wantRule: "break_long",
			wantSev:  types.SeverityCritical,
		},
		{
			name:  "busy for hours",
			agent: types.AgentInfo{Status: types.StatusBusy, StatusStart: now.Add(-3 * time.Hour)},
		},
		{
			name:     "stale softphone",
			agent:    types.AgentInfo{Status: types.StatusAvailable, ConnectionStatus: types.ConnStale},
			wantRule: "softphone_stale",
			wantSev:  types.SeverityWarning,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agents := []types.AgentInfo{tt.agent}
			CheckAgentAlerts(agents, now)

			if tt.wantRule == "" {
				if len(agents[0].Alerts) != 0 {
					t.Errorf("expected no alerts, got %+v", agents[0].Alerts)
				}
				return
			}
			if len(agents[0].Alerts) != 1 {
				t.Fatalf("expected 1 alert, got %d", len(agents[0].Alerts))
			}
			if agents[0].Alerts[0].Rule != tt.wantRule {
				t.Errorf("expected rule %s, got %s", tt.wantRule, agents[0].Alerts[0].Rule)
			}
			if agents[0].Alerts[0].Severity != tt.wantSev {
				t.Errorf("expected severity %s, got %s", tt.wantSev, agents[0].Alerts[0].Severity)
			}
		})
	}
}

func TestCheckAgentAlertsResetsPrevious(t *testing.T) {
	now := time.Now()
	agents := []types.AgentInfo{{
		Status: types.StatusAvailable,
		Alerts: []types.AgentAlert{{Rule: "break_long"}},
	}}
	CheckAgentAlerts(agents, now)
	if Count(agents) != 0 {
		t.Errorf("expected alerts cleared, got %d", Count(agents))
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5*time.Minute + 7*time.Second, "5m7s"},
		{59 * time.Second, "0m59s"},
		{90 * time.Minute, "1h30m"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}
