package types

import "time"

// AgentStatus represents the workspace status of an agent
type AgentStatus string

const (
	StatusAvailable AgentStatus = "available"
	StatusBusy      AgentStatus = "busy"
	StatusBreak     AgentStatus = "break"
	StatusWrapUp    AgentStatus = "wrap_up"
	StatusOffline   AgentStatus = "offline"
)

// StatusLabels maps statuses to the labels shown in the status picker
var StatusLabels = map[AgentStatus]string{
	StatusAvailable: "Available",
	StatusBusy:      "Busy",
	StatusBreak:     "Break",
	StatusWrapUp:    "Wrap-up",
	StatusOffline:   "Offline",
}

// Valid reports whether s is a known status
func (s AgentStatus) Valid() bool {
	_, ok := StatusLabels[s]
	return ok
}

// Role represents the role of an authenticated user
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleAgent      Role = "agent"
	RoleViewer     Role = "viewer"
)

// AlertSeverity represents the severity of an agent alert
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AgentAlert represents an alert condition for an agent
type AgentAlert struct {
	Rule     string        `json:"rule"`
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message"`
}

// AgentConnectionStatus represents the connection status of an agent socket
type AgentConnectionStatus string

const (
	ConnConnected    AgentConnectionStatus = "connected"
	ConnDisconnected AgentConnectionStatus = "disconnected"
	ConnStale        AgentConnectionStatus = "stale" // no heartbeat within threshold
)

// AgentInfo is one row of the supervisor roster
type AgentInfo struct {
	AgentID          string                `json:"agentId"`
	Name             string                `json:"name"`
	Country          string                `json:"country,omitempty"`
	Status           AgentStatus           `json:"status"`
	CallState        CallState             `json:"callState"`
	CampaignID       string                `json:"campaignId,omitempty"`
	ContactID        string                `json:"contactId,omitempty"` // focused campaign contact
	OpenTasks        int                   `json:"openTasks"`
	StatusStart      time.Time             `json:"statusStart"`
	ShiftStart       *time.Time            `json:"shiftStart,omitempty"`
	BreakStart       *time.Time            `json:"breakStart,omitempty"`
	WrapUpStart      *time.Time            `json:"wrapUpStart,omitempty"`
	LastUpdate       time.Time             `json:"lastUpdate"`
	LastHeartbeat    time.Time             `json:"lastHeartbeat"`
	ConnectionStatus AgentConnectionStatus `json:"connectionStatus"`
	DisposedToday    int                   `json:"disposedToday"`
	Alerts           []AgentAlert          `json:"alerts,omitempty"`
}

// RosterSnapshot is broadcast to supervisors every aggregation cycle
type RosterSnapshot struct {
	Type      string        `json:"type"` // always "roster"
	Timestamp time.Time     `json:"timestamp"`
	Summary   RosterSummary `json:"summary"`
	Agents    []AgentInfo   `json:"agents"`
}

// RosterSummary contains aggregated counts
type RosterSummary struct {
	TotalAgents      int                 `json:"totalAgents"`
	StatusBreakdown  map[AgentStatus]int `json:"statusBreakdown"`
	CountryBreakdown map[string]int      `json:"countryBreakdown,omitempty"`
	AlertCount       int                 `json:"alertCount"`
	CallEvents       int                 `json:"callEvents"` // call state events since the previous snapshot
}

// Summarize counts statuses, countries and alerts of roster rows
func Summarize(agents []AgentInfo) RosterSummary {
	s := RosterSummary{
		TotalAgents:      len(agents),
		StatusBreakdown:  make(map[AgentStatus]int),
		CountryBreakdown: make(map[string]int),
	}
	for _, a := range agents {
		s.StatusBreakdown[a.Status]++
		if a.Country != "" {
			s.CountryBreakdown[a.Country]++
		}
		s.AlertCount += len(a.Alerts)
	}
	return s
}
