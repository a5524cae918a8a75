package ingestion

import (
	"github.com/dennisdiepolder/monti/agentdesk/internal/calltiming"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// EventProcessor processes softphone events from any source (agent socket, PBX webhook)
type EventProcessor interface {
	ProcessRegister(reg *types.AgentRegister)
	ProcessHeartbeat(hb *types.AgentHeartbeat)
	ProcessCallState(ev *types.CallEvent) error
}

// CallStateHandler applies a call state change to the agent's workspace
type CallStateHandler interface {
	HandleCallEvent(ev types.CallEvent) (calltiming.Transition, error)
}
