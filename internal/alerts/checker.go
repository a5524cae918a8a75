package alerts

import (
	"fmt"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

const (
	// WrapUpLimit is how long an agent may stay in wrap-up before a warning
	WrapUpLimit = 5 * time.Minute
	// BreakLimit is how long a break may last before it turns critical
	BreakLimit = 10 * time.Minute
)

// CheckAgentAlerts evaluates alert rules for a slice of roster rows,
// mutating each agent's Alerts field in place.
func CheckAgentAlerts(agents []types.AgentInfo, now time.Time) {
	for i := range agents {
		agents[i].Alerts = nil

		switch agents[i].Status {
		case types.StatusWrapUp:
			start := agents[i].StatusStart
			if agents[i].WrapUpStart != nil {
				start = *agents[i].WrapUpStart
			}
			if dur := now.Sub(start); dur > WrapUpLimit {
				agents[i].Alerts = append(agents[i].Alerts, types.AgentAlert{
					Rule:     "wrap_up_long",
					Severity: types.SeverityWarning,
					Message:  fmt.Sprintf("Wrap-up for %s", formatDuration(dur)),
				})
			}

		case types.StatusBreak:
			start := agents[i].StatusStart
			if agents[i].BreakStart != nil {
				start = *agents[i].BreakStart
			}
			if dur := now.Sub(start); dur > BreakLimit {
				agents[i].Alerts = append(agents[i].Alerts, types.AgentAlert{
					Rule:     "break_long",
					Severity: types.SeverityCritical,
					Message:  fmt.Sprintf("Break for %s", formatDuration(dur)),
				})
			}
		}

		if agents[i].ConnectionStatus == types.ConnStale {
			agents[i].Alerts = append(agents[i].Alerts, types.AgentAlert{
				Rule:     "softphone_stale",
				Severity: types.SeverityWarning,
				Message:  "No softphone heartbeat",
			})
		}
	}
}

// Count returns the total number of alerts across agents
func Count(agents []types.AgentInfo) int {
	n := 0
	for _, a := range agents {
		n += len(a.Alerts)
	}
	return n
}

func formatDuration(d time.Duration) string {
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if mins >= 60 {
		hours := mins / 60
		mins = mins % 60
		return fmt.Sprintf("%dh%dm", hours, mins)
	}
	return fmt.Sprintf("%dm%ds", mins, secs)
}
