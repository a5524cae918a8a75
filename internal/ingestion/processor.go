package ingestion

import (
	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/cache"
	"github.com/dennisdiepolder/monti/agentdesk/internal/metrics"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// DefaultProcessor implements EventProcessor on top of the presence tracker
// and the workspace registry
type DefaultProcessor struct {
	tracker *cache.PresenceTracker
	events  *cache.EventCache
	calls   CallStateHandler
	logger  zerolog.Logger
}

// NewDefaultProcessor creates a new DefaultProcessor
func NewDefaultProcessor(tracker *cache.PresenceTracker, events *cache.EventCache, logger zerolog.Logger) *DefaultProcessor {
	return &DefaultProcessor{
		tracker: tracker,
		events:  events,
		logger:  logger.With().Str("component", "ingestion").Logger(),
	}
}

// SetCallStateHandler sets the call state handler (to avoid circular init)
func (p *DefaultProcessor) SetCallStateHandler(h CallStateHandler) {
	p.calls = h
}

func (p *DefaultProcessor) ProcessRegister(reg *types.AgentRegister) {
	p.tracker.Register(reg)
	metrics.Get().RecordAgentRegister()

	p.logger.Debug().
		Str("agent_id", reg.AgentID).
		Str("name", reg.Name).
		Msg("softphone registered")
}

func (p *DefaultProcessor) ProcessHeartbeat(hb *types.AgentHeartbeat) {
	if p.tracker.Heartbeat(hb) {
		metrics.Get().RecordAgentHeartbeat()
	}
}

func (p *DefaultProcessor) ProcessCallState(ev *types.CallEvent) error {
	p.events.Add(*ev)
	if p.calls == nil {
		return nil
	}

	tr, err := p.calls.HandleCallEvent(*ev)
	if err != nil {
		p.logger.Warn().Err(err).
			Str("agent_id", ev.AgentID).
			Str("state", string(ev.State)).
			Msg("call state rejected")
		return err
	}

	p.logger.Debug().
		Str("agent_id", ev.AgentID).
		Str("call_id", ev.CallID).
		Str("from", string(tr.From)).
		Str("to", string(tr.To)).
		Bool("ended", tr.Ended).
		Bool("gate_required", tr.GateRequired).
		Msg("call state applied")
	return nil
}
