package workspace

import "github.com/dennisdiepolder/monti/agentdesk/internal/types"

// PhoneTab is the sub-view of the phone channel
type PhoneTab string

const (
	PhoneDialer  PhoneTab = "dialer"
	PhoneScript  PhoneTab = "script"
	PhoneHistory PhoneTab = "history"
)

// ChannelState is what the agent's canvas shows
type ChannelState struct {
	Channel   types.Channel   `json:"channel"`
	PhoneTab  PhoneTab        `json:"phoneTab"`
	CallState types.CallState `json:"callState"`
}

// ChannelActionKind enumerates canvas transitions
type ChannelActionKind int

const (
	SelectChannel ChannelActionKind = iota
	SelectPhoneTab
	CallStateChanged
	ContactCleared
)

// ChannelAction is one canvas transition
type ChannelAction struct {
	Kind      ChannelActionKind
	Channel   types.Channel
	PhoneTab  PhoneTab
	CallState types.CallState
}

// InitialChannelState is the canvas with no call and the dialer open
func InitialChannelState() ChannelState {
	return ChannelState{Channel: types.ChannelPhone, PhoneTab: PhoneDialer, CallState: types.CallIdle}
}

// ReduceChannel applies an action. While a call is in progress the canvas stays on the
// phone channel; a call that starts ringing brings the dialer forward.
func ReduceChannel(s ChannelState, a ChannelAction) ChannelState {
	switch a.Kind {
	case SelectChannel:
		switch a.Channel {
		case types.ChannelPhone, types.ChannelEmail, types.ChannelSMS:
		default:
			return s
		}
		if s.CallState.InProgress() && a.Channel != types.ChannelPhone {
			return s
		}
		s.Channel = a.Channel
	case SelectPhoneTab:
		if s.Channel != types.ChannelPhone {
			return s
		}
		switch a.PhoneTab {
		case PhoneDialer, PhoneScript, PhoneHistory:
			s.PhoneTab = a.PhoneTab
		}
	case CallStateChanged:
		starting := !s.CallState.InProgress() &&
			(a.CallState == types.CallConnecting || a.CallState == types.CallRinging)
		s.CallState = a.CallState
		if starting {
			s.Channel = types.ChannelPhone
			s.PhoneTab = PhoneDialer
		}
	case ContactCleared:
		s.Channel = types.ChannelPhone
		s.PhoneTab = PhoneDialer
	}
	return s
}
