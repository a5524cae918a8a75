package types

import "time"

// AgentRegister is sent by the agent front-end when its socket opens
type AgentRegister struct {
	Type    string `json:"type"` // "register"
	AgentID string `json:"agentId"`
	Name    string `json:"name,omitempty"`
}

// AgentHeartbeat is sent by the agent front-end periodically
type AgentHeartbeat struct {
	Type      string    `json:"type"` // "heartbeat"
	AgentID   string    `json:"agentId"`
	Timestamp time.Time `json:"timestamp"`
}

// CallStateMessage carries a softphone call state change over the agent socket
type CallStateMessage struct {
	Type string `json:"type"` // "call_state"
	CallEvent
}

// ServerAck is sent to the agent as acknowledgment of registration
type ServerAck struct {
	Type    string `json:"type"` // "ack"
	AgentID string `json:"agentId"`
}

// CallAction is a softphone command
type CallAction string

const (
	ActionDial   CallAction = "dial"
	ActionHangup CallAction = "hangup"
	ActionMute   CallAction = "mute"
	ActionUnmute CallAction = "unmute"
	ActionHold   CallAction = "hold"
	ActionResume CallAction = "resume"
	ActionDTMF   CallAction = "dtmf"
	ActionVolume CallAction = "volume"
)

// CallCommand is sent to the agent's softphone
type CallCommand struct {
	Type   string     `json:"type"` // "call_command"
	Action CallAction `json:"action"`
	Number string     `json:"number,omitempty"`
	Digits string     `json:"digits,omitempty"`
	Volume int        `json:"volume,omitempty"`
}

// ToastLevel is the severity of a toast notification
type ToastLevel string

const (
	ToastInfo    ToastLevel = "info"
	ToastSuccess ToastLevel = "success"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// Toast is a user-facing notification pushed to the agent
type Toast struct {
	Type    string     `json:"type"` // "toast"
	Level   ToastLevel `json:"level"`
	Title   string     `json:"title"`
	Message string     `json:"message,omitempty"`
}

// ClockFrame carries the live counters of an agent workspace
type ClockFrame struct {
	Type              string      `json:"type"` // "clock"
	ServerTime        int64       `json:"serverTime"`
	Status            AgentStatus `json:"status"`
	WorkTime          string      `json:"workTime"`   // HH:MM:SS since shift start
	StatusTime        string      `json:"statusTime"` // HH:MM:SS in current status
	RingSeconds       int         `json:"ringSeconds,omitempty"`
	TalkSeconds       int         `json:"talkSeconds,omitempty"`
	AutoDialRemaining int         `json:"autoDialRemaining,omitempty"`
}

// ForceDisconnect is sent to the agent before the server closes its socket
type ForceDisconnect struct {
	Type    string `json:"type"` // "force_disconnect"
	AgentID string `json:"agentId"`
	Reason  string `json:"reason,omitempty"`
}
