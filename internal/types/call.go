package types

import "time"

// CallState mirrors the softphone call state machine
type CallState string

const (
	CallIdle       CallState = "idle"
	CallConnecting CallState = "connecting"
	CallRinging    CallState = "ringing"
	CallActive     CallState = "active"
	CallOnHold     CallState = "on_hold"
	CallEnded      CallState = "ended"
)

// Valid reports whether s is a known call state
func (s CallState) Valid() bool {
	switch s {
	case CallIdle, CallConnecting, CallRinging, CallActive, CallOnHold, CallEnded:
		return true
	}
	return false
}

// InProgress reports whether a call is being set up or is connected
func (s CallState) InProgress() bool {
	switch s {
	case CallConnecting, CallRinging, CallActive, CallOnHold:
		return true
	}
	return false
}

// HangupParty identifies who ended the call
type HangupParty string

const (
	HangupUnknown  HangupParty = ""
	HangupAgent    HangupParty = "agent"
	HangupCustomer HangupParty = "customer"
)

// CallMeta is the frozen timing of one call, attached to its disposition
type CallMeta struct {
	RingDurationSeconds int         `json:"ringDurationSeconds"`
	TalkDurationSeconds int         `json:"talkDurationSeconds"`
	HungUpBy            HangupParty `json:"hungUpBy,omitempty"`
	RingStartedAt       *time.Time  `json:"ringStartedAt,omitempty"`
	CallStartedAt       *time.Time  `json:"callStartedAt,omitempty"`
	CallEndedAt         *time.Time  `json:"callEndedAt,omitempty"`
	Number              string      `json:"number,omitempty"`
}

// CallEvent is a call state change reported by the softphone or the PBX
type CallEvent struct {
	AgentID   string      `json:"agentId" validate:"required"`
	CallID    string      `json:"callId,omitempty"`
	State     CallState   `json:"state" validate:"required"`
	HungUpBy  HangupParty `json:"hungUpBy,omitempty"`
	Number    string      `json:"number,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
