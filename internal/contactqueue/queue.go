package contactqueue

import (
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/rs/zerolog"
)

// Queue holds one agent's view of a campaign's contacts. It is not safe for
// concurrent use; the owning session serializes access.
type Queue struct {
	userID   string
	campaign types.Campaign
	contacts []types.CampaignContact
	disposed map[string]bool
	engine   *Engine
	logger   zerolog.Logger
}

// NewQueue creates an empty queue for userID
func NewQueue(userID string, engine *Engine, logger zerolog.Logger) *Queue {
	return &Queue{
		userID:   userID,
		disposed: make(map[string]bool),
		engine:   engine,
		logger:   logger.With().Str("component", "contactqueue").Str("agent_id", userID).Logger(),
	}
}

// Load replaces the contact list. Switching to another campaign forgets the locally
// disposed set; a refetch of the same campaign keeps it until the backend catches up.
func (q *Queue) Load(campaign types.Campaign, contacts []types.CampaignContact) {
	if campaign.ID != q.campaign.ID {
		q.disposed = make(map[string]bool)
	}
	q.campaign = campaign
	q.contacts = append([]types.CampaignContact(nil), contacts...)

	q.logger.Debug().
		Str("campaign_id", campaign.ID).
		Int("contacts", len(contacts)).
		Int("disposed_locally", len(q.disposed)).
		Msg("contacts loaded")
}

// Campaign returns the loaded campaign
func (q *Queue) Campaign() types.Campaign {
	return q.campaign
}

// MarkDisposed excludes a contact from delivery for the rest of the session
func (q *Queue) MarkDisposed(contactID string) {
	q.disposed[contactID] = true
}

// Disposed reports whether the contact was disposed locally
func (q *Queue) Disposed(contactID string) bool {
	return q.disposed[contactID]
}

// Update replaces a contact with an optimistically modified copy
func (q *Queue) Update(contact types.CampaignContact) {
	for i := range q.contacts {
		if q.contacts[i].ID == contact.ID {
			q.contacts[i] = contact
			return
		}
	}
}

// Find looks a contact up by id, disposed or not
func (q *Queue) Find(contactID string) (types.CampaignContact, bool) {
	for _, c := range q.contacts {
		if c.ID == contactID {
			return c, true
		}
	}
	return types.CampaignContact{}, false
}

// Partitions returns the delivery partitions, with pending contacts re-sorted by the
// campaign's sort settings
func (q *Queue) Partitions(now time.Time) Partitions {
	p := Partition(q.contacts, q.userID, now, q.disposed)
	SortPending(p.PendingContacts, q.campaign.Settings, q.engine, now, q.logger)
	return p
}

// Ordered returns the contacts in delivery order
func (q *Queue) Ordered(now time.Time) []types.CampaignContact {
	return q.Partitions(now).Ordered()
}

// Next returns the head of the delivery order
func (q *Queue) Next(now time.Time) (types.CampaignContact, bool) {
	ordered := q.Ordered(now)
	if len(ordered) == 0 {
		return types.CampaignContact{}, false
	}
	return ordered[0], true
}

// Len returns the number of deliverable contacts
func (q *Queue) Len(now time.Time) int {
	return Partition(q.contacts, q.userID, now, q.disposed).Len()
}

// Wipe clears contacts, campaign and the disposed set, returning how many contacts were dropped
func (q *Queue) Wipe() int {
	count := len(q.contacts)
	q.contacts = nil
	q.campaign = types.Campaign{}
	q.disposed = make(map[string]bool)
	return count
}
