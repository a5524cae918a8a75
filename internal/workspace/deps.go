// Package workspace is the headless agent workspace: one Session per logged-in agent
// holds the call and contact state machine, the queue, the disposition gate, open tasks,
// the script runner and the status supervisor.
package workspace

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/dennisdiepolder/monti/agentdesk/internal/clock"
	"github.com/dennisdiepolder/monti/agentdesk/internal/contactqueue"
	"github.com/dennisdiepolder/monti/agentdesk/internal/crmapi"
	"github.com/dennisdiepolder/monti/agentdesk/internal/events"
	"github.com/dennisdiepolder/monti/agentdesk/internal/messaging"
	"github.com/dennisdiepolder/monti/agentdesk/internal/storage"
	"github.com/dennisdiepolder/monti/agentdesk/internal/telephony"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// DefaultWrapUpDelay is how long a manual-mode agent stays in wrap-up after disposing
const DefaultWrapUpDelay = 3 * time.Second

// CRM is the part of the CRM backend a session uses
type CRM interface {
	LoadCampaign(ctx context.Context, campaignID string) (crmapi.CampaignBundle, error)
	ListCampaignContacts(ctx context.Context, campaignID string) ([]types.CampaignContact, error)
	UpdateCampaignContact(ctx context.Context, id string, patch types.ContactPatch) (types.CampaignContact, error)
	ContactHistory(ctx context.Context, customerID string) ([]types.HistoryEntry, error)
	RecordUserSession(ctx context.Context, s crmapi.UserSession) error
}

// Phone issues softphone commands
type Phone interface {
	Dial(agentID, number string) (string, error)
	Hangup(agentID string) error
	Mute(agentID string, muted bool) error
	Hold(agentID string, held bool) error
	DTMF(agentID, digits string) error
	Volume(agentID string, volume int) error
}

// Lifecycle receives session enter and exit
type Lifecycle interface {
	OnSessionStart(agent Agent)
	OnSessionEnd(agent Agent)
}

// NopLifecycle ignores lifecycle events
type NopLifecycle struct{}

func (NopLifecycle) OnSessionStart(Agent) {}
func (NopLifecycle) OnSessionEnd(Agent)   {}

// Agent identifies the user owning a session
type Agent struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Role      types.Role `json:"role"`
	Countries []string   `json:"countries,omitempty"`
}

// CanSee reports whether the agent may work a campaign restricted to countries.
// Admins see everything and campaigns without countries are generic.
func (a Agent) CanSee(campaign types.Campaign) bool {
	if a.Role == types.RoleAdmin || len(campaign.CountryCodes) == 0 {
		return true
	}
	for _, cc := range campaign.CountryCodes {
		for _, mine := range a.Countries {
			if cc == mine {
				return true
			}
		}
	}
	return false
}

// Country returns the agent's first country for the roster
func (a Agent) Country() string {
	if len(a.Countries) == 0 {
		return ""
	}
	return a.Countries[0]
}

// Deps are the collaborators shared by all sessions
type Deps struct {
	CRM         CRM
	Phone       Phone
	Normalizer  *telephony.Normalizer
	Email       messaging.EmailSender
	SMS         messaging.SMSSender
	Store       storage.Store
	Events      events.Publisher
	Notifier    telephony.Sender
	Lifecycle   Lifecycle
	Clock       clock.Clock
	Engine      *contactqueue.Engine
	WrapUpDelay time.Duration
	Logger      zerolog.Logger
}

func (d *Deps) defaults() {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Engine == nil {
		d.Engine = contactqueue.NewEngine()
	}
	if d.Lifecycle == nil {
		d.Lifecycle = NopLifecycle{}
	}
	if d.Store == nil {
		d.Store = storage.NewNoopStore()
	}
	if d.Events == nil {
		d.Events = events.NoopPublisher{}
	}
	if d.Normalizer == nil {
		d.Normalizer = telephony.NewNormalizer("")
	}
	if d.WrapUpDelay <= 0 {
		d.WrapUpDelay = DefaultWrapUpDelay
	}
}
