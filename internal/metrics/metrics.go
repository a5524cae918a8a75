package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Metrics holds all application metrics
type Metrics struct {
	mu sync.RWMutex

	// Call event metrics
	CallEventsReceivedTotal int64
	CallEventErrorsTotal    int64
	CallsEndedTotal         int64
	GatesForcedTotal        int64

	// Workspace metrics
	DispositionsTotal        int64
	DispositionSyncFailures  int64
	messagesSent             map[string]int64 // channel -> count
	InvoicesCreatedTotal     int64
	ScheduledInvoicesTotal   int64
	ScheduledInvoiceFailures int64
	InvoiceSubmitErrorsTotal int64

	// WebSocket metrics
	WebSocketConnectionsTotal    int64
	WebSocketDisconnectionsTotal int64
	WebSocketMessagesTotal       int64
	WebSocketErrorsTotal         int64
	activeConnections            int64

	// Softphone metrics
	SoftphoneConnectionsTotal    int64
	SoftphoneDisconnectionsTotal int64
	SoftphoneRegistrationsTotal  int64
	SoftphoneHeartbeatsTotal     int64
	activeSoftphones             int64

	// Roster metrics
	RosterCyclesTotal  int64
	RosterErrorsTotal  int64
	lastRosterDuration time.Duration
	agentsByStatus     map[types.AgentStatus]int
	agentsByCountry    map[string]int
	totalAgents        int

	// HTTP metrics
	httpRequestsTotal    map[string]map[int]int64 // endpoint -> status -> count
	httpRequestDurations map[string][]float64     // endpoint -> durations

	// Timing
	startTime time.Time
}

// Global metrics instance
var instance *Metrics
var once sync.Once

// Get returns the singleton metrics instance
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			messagesSent:         make(map[string]int64),
			agentsByStatus:       make(map[types.AgentStatus]int),
			agentsByCountry:      make(map[string]int),
			httpRequestsTotal:    make(map[string]map[int]int64),
			httpRequestDurations: make(map[string][]float64),
			startTime:            time.Now(),
		}
	})
	return instance
}

// RecordCallEvent increments the call events received counter
func (m *Metrics) RecordCallEvent() {
	m.mu.Lock()
	m.CallEventsReceivedTotal++
	m.mu.Unlock()
}

// RecordCallEventError increments the rejected call events counter
func (m *Metrics) RecordCallEventError() {
	m.mu.Lock()
	m.CallEventErrorsTotal++
	m.mu.Unlock()
}

// RecordCallEnded counts a finished call and whether it forced the disposition gate
func (m *Metrics) RecordCallEnded(gateForced bool) {
	m.mu.Lock()
	m.CallsEndedTotal++
	if gateForced {
		m.GatesForcedTotal++
	}
	m.mu.Unlock()
}

// RecordDisposition counts a disposed contact
func (m *Metrics) RecordDisposition(synced bool) {
	m.mu.Lock()
	m.DispositionsTotal++
	if !synced {
		m.DispositionSyncFailures++
	}
	m.mu.Unlock()
}

// RecordMessageSent counts an email or SMS sent to a customer
func (m *Metrics) RecordMessageSent(channel string) {
	m.mu.Lock()
	m.messagesSent[channel]++
	m.mu.Unlock()
}

// RecordInvoiceSubmit counts a finished wizard submission
func (m *Metrics) RecordInvoiceSubmit(scheduled, scheduledFailed int) {
	m.mu.Lock()
	m.InvoicesCreatedTotal++
	m.ScheduledInvoicesTotal += int64(scheduled)
	m.ScheduledInvoiceFailures += int64(scheduledFailed)
	m.mu.Unlock()
}

// RecordInvoiceSubmitError counts a submission that created nothing
func (m *Metrics) RecordInvoiceSubmitError() {
	m.mu.Lock()
	m.InvoiceSubmitErrorsTotal++
	m.mu.Unlock()
}

// RecordWebSocketConnect increments connection counters
func (m *Metrics) RecordWebSocketConnect() {
	m.mu.Lock()
	m.WebSocketConnectionsTotal++
	m.activeConnections++
	m.mu.Unlock()
}

// RecordWebSocketDisconnect increments disconnection counter
func (m *Metrics) RecordWebSocketDisconnect() {
	m.mu.Lock()
	m.WebSocketDisconnectionsTotal++
	m.activeConnections--
	m.mu.Unlock()
}

// RecordWebSocketMessage increments message counter
func (m *Metrics) RecordWebSocketMessage() {
	m.mu.Lock()
	m.WebSocketMessagesTotal++
	m.mu.Unlock()
}

// RecordWebSocketError increments WebSocket error counter
func (m *Metrics) RecordWebSocketError() {
	m.mu.Lock()
	m.WebSocketErrorsTotal++
	m.mu.Unlock()
}

// RecordAgentConnect counts an agent softphone socket
func (m *Metrics) RecordAgentConnect() {
	m.mu.Lock()
	m.SoftphoneConnectionsTotal++
	m.activeSoftphones++
	m.mu.Unlock()
}

// RecordAgentDisconnect counts a closed agent softphone socket
func (m *Metrics) RecordAgentDisconnect() {
	m.mu.Lock()
	m.SoftphoneDisconnectionsTotal++
	m.activeSoftphones--
	m.mu.Unlock()
}

// RecordAgentRegister counts a softphone register message
func (m *Metrics) RecordAgentRegister() {
	m.mu.Lock()
	m.SoftphoneRegistrationsTotal++
	m.mu.Unlock()
}

// RecordAgentHeartbeat counts a softphone heartbeat
func (m *Metrics) RecordAgentHeartbeat() {
	m.mu.Lock()
	m.SoftphoneHeartbeatsTotal++
	m.mu.Unlock()
}

// RecordRosterCycle records one roster broadcast
func (m *Metrics) RecordRosterCycle(duration time.Duration) {
	m.mu.Lock()
	m.RosterCyclesTotal++
	m.lastRosterDuration = duration
	m.mu.Unlock()
}

// RecordRosterError increments roster broadcast error counter
func (m *Metrics) RecordRosterError() {
	m.mu.Lock()
	m.RosterErrorsTotal++
	m.mu.Unlock()
}

// UpdateAgentStats updates agent distribution metrics
func (m *Metrics) UpdateAgentStats(agents []types.AgentInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Reset counts
	m.agentsByStatus = make(map[types.AgentStatus]int)
	m.agentsByCountry = make(map[string]int)
	m.totalAgents = len(agents)

	for _, agent := range agents {
		m.agentsByStatus[agent.Status]++
		if agent.Country != "" {
			m.agentsByCountry[agent.Country]++
		}
	}
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(endpoint string, statusCode int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.httpRequestsTotal[endpoint] == nil {
		m.httpRequestsTotal[endpoint] = make(map[int]int64)
	}
	m.httpRequestsTotal[endpoint][statusCode]++

	// Keep last 100 durations for percentile calculation
	if len(m.httpRequestDurations[endpoint]) >= 100 {
		m.httpRequestDurations[endpoint] = m.httpRequestDurations[endpoint][1:]
	}
	m.httpRequestDurations[endpoint] = append(m.httpRequestDurations[endpoint], duration.Seconds())
}

// GetActiveConnections returns current WebSocket connections
func (m *Metrics) GetActiveConnections() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeConnections
}

// MessagesSent returns the sent count for a channel
func (m *Metrics) MessagesSent(channel string) int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.messagesSent[channel]
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		write := func(name string, value interface{}, labels ...string) {
			labelStr := ""
			if len(labels) > 0 {
				labelStr = "{"
				for i := 0; i < len(labels); i += 2 {
					if i > 0 {
						labelStr += ","
					}
					labelStr += labels[i] + "=\"" + labels[i+1] + "\""
				}
				labelStr += "}"
			}

			switch v := value.(type) {
			case int:
				w.Write([]byte(name + labelStr + " " + strconv.Itoa(v) + "\n"))
			case int64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatInt(v, 10) + "\n"))
			case float64:
				w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(v, 'f', 6, 64) + "\n"))
			}
		}

		write("agentdesk_uptime_seconds", time.Since(m.startTime).Seconds())

		// Calls
		write("agentdesk_call_events_received_total", m.CallEventsReceivedTotal)
		write("agentdesk_call_event_errors_total", m.CallEventErrorsTotal)
		write("agentdesk_calls_ended_total", m.CallsEndedTotal)
		write("agentdesk_disposition_gates_forced_total", m.GatesForcedTotal)

		// Workspace
		write("agentdesk_dispositions_total", m.DispositionsTotal)
		write("agentdesk_disposition_sync_failures_total", m.DispositionSyncFailures)
		for channel, count := range m.messagesSent {
			write("agentdesk_messages_sent_total", count, "channel", channel)
		}
		write("agentdesk_invoices_created_total", m.InvoicesCreatedTotal)
		write("agentdesk_scheduled_invoices_total", m.ScheduledInvoicesTotal)
		write("agentdesk_scheduled_invoice_failures_total", m.ScheduledInvoiceFailures)
		write("agentdesk_invoice_submit_errors_total", m.InvoiceSubmitErrorsTotal)

		// WebSocket metrics
		write("agentdesk_websocket_connections_total", m.WebSocketConnectionsTotal)
		write("agentdesk_websocket_disconnections_total", m.WebSocketDisconnectionsTotal)
		write("agentdesk_websocket_active_connections", m.activeConnections)
		write("agentdesk_websocket_messages_total", m.WebSocketMessagesTotal)
		write("agentdesk_websocket_errors_total", m.WebSocketErrorsTotal)

		// Softphones
		write("agentdesk_softphone_connections_total", m.SoftphoneConnectionsTotal)
		write("agentdesk_softphone_disconnections_total", m.SoftphoneDisconnectionsTotal)
		write("agentdesk_softphone_active", m.activeSoftphones)
		write("agentdesk_softphone_registrations_total", m.SoftphoneRegistrationsTotal)
		write("agentdesk_softphone_heartbeats_total", m.SoftphoneHeartbeatsTotal)

		// Roster
		write("agentdesk_roster_cycles_total", m.RosterCyclesTotal)
		write("agentdesk_roster_errors_total", m.RosterErrorsTotal)
		write("agentdesk_roster_duration_seconds", m.lastRosterDuration.Seconds())
		write("agentdesk_agents_total", m.totalAgents)
		for status, count := range m.agentsByStatus {
			write("agentdesk_agents_by_status", count, "status", string(status))
		}
		for country, count := range m.agentsByCountry {
			write("agentdesk_agents_by_country", count, "country", country)
		}

		// HTTP metrics
		for endpoint, statusCodes := range m.httpRequestsTotal {
			for status, count := range statusCodes {
				write("agentdesk_http_requests_total", count, "endpoint", endpoint, "status", strconv.Itoa(status))
			}
		}
	}
}
