package workspace

import (
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/disposition"
	"github.com/dennisdiepolder/monti/agentdesk/internal/script"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// CallView is the softphone panel
type CallView struct {
	State       types.CallState `json:"state"`
	RingSeconds int             `json:"ringSeconds"`
	TalkSeconds int             `json:"talkSeconds"`
	Muted       bool            `json:"muted"`
	Held        bool            `json:"held"`
}

// ScriptView is the current script step with variables substituted
type ScriptView struct {
	Step     types.ScriptStep    `json:"step"`
	Index    int                 `json:"index"`
	AtEnd    bool                `json:"atEnd"`
	Progress script.Progress     `json:"progress"`
	Answers  map[string][]string `json:"answers,omitempty"`
}

// View is a read-only snapshot of the whole workspace
type View struct {
	Agent             Agent                  `json:"agent"`
	Shift             ShiftState             `json:"shift"`
	Campaign          *types.Campaign        `json:"campaign,omitempty"`
	Contact           *types.CampaignContact `json:"contact,omitempty"`
	Channel           ChannelState           `json:"channel"`
	Call              CallView               `json:"call"`
	Gate              disposition.State      `json:"gate"`
	Tasks             []types.Task           `json:"tasks"`
	Timeline          []types.TimelineEntry  `json:"timeline"`
	Script            *ScriptView            `json:"script,omitempty"`
	QueueCounts       map[string]int         `json:"queueCounts"`
	QueueLength       int                    `json:"queueLength"`
	AutoDialRemaining int                    `json:"autoDialRemaining"`
}

// Snapshot returns the current view
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.deps.Clock.Now()

	v := View{
		Agent:   s.agent,
		Shift:   s.sup.State(now),
		Channel: s.channel,
		Call: CallView{
			State:       s.timing.State(),
			RingSeconds: s.timing.RingSeconds(now),
			TalkSeconds: s.timing.TalkSeconds(now),
			Muted:       s.muted,
			Held:        s.held,
		},
		Gate:              s.gate.State(),
		Tasks:             s.tasks.List(),
		Timeline:          s.timeline.Entries(),
		AutoDialRemaining: s.autodial.Remaining(),
	}
	if s.campaign != nil {
		c := *s.campaign
		v.Campaign = &c
		p := s.queue.Partitions(now)
		v.QueueCounts = p.Counts()
		v.QueueLength = p.Len()
	}
	if s.focused != nil {
		c := *s.focused
		v.Contact = &c
		if s.runner != nil && s.campaign != nil {
			v.Script = s.scriptViewLocked(c, now)
		}
	}
	return v
}

func (s *Session) scriptViewLocked(contact types.CampaignContact, now time.Time) *ScriptView {
	step, ok := s.runner.Current()
	if !ok {
		return nil
	}
	vars := script.VariablesFor(contact, s.agent.Name, *s.campaign, now)
	return &ScriptView{
		Step:     script.Render(step, vars),
		Index:    s.runner.CurrentIndex(),
		AtEnd:    s.runner.AtEnd(),
		Progress: s.runner.Progress(),
		Answers:  s.runner.Answers(),
	}
}

// Clock returns the live counters pushed to the agent every second
func (s *Session) Clock() types.ClockFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.deps.Clock.Now()
	return types.ClockFrame{
		Type:              "clock",
		ServerTime:        now.UnixMilli(),
		Status:            s.sup.Status(),
		WorkTime:          FormatClock(s.sup.WorkTime(now)),
		StatusTime:        FormatClock(now.Sub(s.sup.StatusSince())),
		RingSeconds:       s.timing.RingSeconds(now),
		TalkSeconds:       s.timing.TalkSeconds(now),
		AutoDialRemaining: s.autodial.Remaining(),
	}
}

// Roster returns the session's row for the supervisor roster
func (s *Session) Roster() types.AgentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.deps.Clock.Now()
	info := types.AgentInfo{
		AgentID:       s.agent.ID,
		Name:          s.agent.Name,
		Country:       s.agent.Country(),
		Status:        s.sup.Status(),
		CallState:     s.timing.State(),
		OpenTasks:     s.tasks.Len(),
		StatusStart:   s.sup.StatusSince(),
		ShiftStart:    s.sup.ShiftStart(),
		BreakStart:    s.sup.BreakStart(),
		LastUpdate:    now,
		DisposedToday: s.sup.Disposed(),
	}
	if s.sup.Status() == types.StatusWrapUp {
		start := s.sup.StatusSince()
		info.WrapUpStart = &start
	}
	if s.campaign != nil {
		info.CampaignID = s.campaign.ID
	}
	if s.focused != nil {
		info.ContactID = s.focused.ID
	}
	return info
}
