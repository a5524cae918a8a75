package contactqueue

import (
	"sort"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Partitions holds a campaign's workable contacts in delivery priority order
type Partitions struct {
	MyDueCallbacks        []types.CampaignContact `json:"myDueCallbacks"`
	TeamDueCallbacks      []types.CampaignContact `json:"teamDueCallbacks"`
	MyUpcomingCallbacks   []types.CampaignContact `json:"myUpcomingCallbacks"`
	TeamUpcomingCallbacks []types.CampaignContact `json:"teamUpcomingCallbacks"`
	PendingContacts       []types.CampaignContact `json:"pendingContacts"`
	OtherCallbacks        []types.CampaignContact `json:"otherCallbacks"`
}

// Partition splits contacts into the six delivery partitions. Contacts in disposed and
// contacts whose status is no longer workable are left out; every other contact lands in
// exactly one partition. Callback partitions are ordered by callback date, missing dates last.
func Partition(contacts []types.CampaignContact, userID string, now time.Time, disposed map[string]bool) Partitions {
	var p Partitions

	for _, c := range contacts {
		if disposed[c.ID] || !c.Status.Workable() {
			continue
		}

		mine := c.AssignedToUser(userID)
		team := c.TeamOwned()
		scheduled := c.Status == types.ContactCallbackScheduled
		due := c.CallbackDate != nil && !c.CallbackDate.After(now)
		upcoming := (scheduled || c.CallbackDate != nil) && !due

		switch {
		case scheduled && due && mine:
			p.MyDueCallbacks = append(p.MyDueCallbacks, c)
		case scheduled && due && team:
			p.TeamDueCallbacks = append(p.TeamDueCallbacks, c)
		case upcoming && mine:
			p.MyUpcomingCallbacks = append(p.MyUpcomingCallbacks, c)
		case upcoming && team:
			p.TeamUpcomingCallbacks = append(p.TeamUpcomingCallbacks, c)
		case c.Status == types.ContactPending:
			p.PendingContacts = append(p.PendingContacts, c)
		default:
			p.OtherCallbacks = append(p.OtherCallbacks, c)
		}
	}

	sortByCallbackDate(p.MyDueCallbacks)
	sortByCallbackDate(p.TeamDueCallbacks)
	sortByCallbackDate(p.MyUpcomingCallbacks)
	sortByCallbackDate(p.TeamUpcomingCallbacks)

	return p
}

// Ordered concatenates the partitions in delivery order
func (p Partitions) Ordered() []types.CampaignContact {
	out := make([]types.CampaignContact, 0, p.Len())
	out = append(out, p.MyDueCallbacks...)
	out = append(out, p.TeamDueCallbacks...)
	out = append(out, p.MyUpcomingCallbacks...)
	out = append(out, p.TeamUpcomingCallbacks...)
	out = append(out, p.PendingContacts...)
	out = append(out, p.OtherCallbacks...)
	return out
}

// Len returns the total number of contacts across partitions
func (p Partitions) Len() int {
	return len(p.MyDueCallbacks) + len(p.TeamDueCallbacks) + len(p.MyUpcomingCallbacks) +
		len(p.TeamUpcomingCallbacks) + len(p.PendingContacts) + len(p.OtherCallbacks)
}

// Counts returns partition sizes keyed by partition name
func (p Partitions) Counts() map[string]int {
	return map[string]int{
		"myDueCallbacks":        len(p.MyDueCallbacks),
		"teamDueCallbacks":      len(p.TeamDueCallbacks),
		"myUpcomingCallbacks":   len(p.MyUpcomingCallbacks),
		"teamUpcomingCallbacks": len(p.TeamUpcomingCallbacks),
		"pendingContacts":       len(p.PendingContacts),
		"otherCallbacks":        len(p.OtherCallbacks),
	}
}

func sortByCallbackDate(contacts []types.CampaignContact) {
	sort.SliceStable(contacts, func(i, j int) bool {
		a, b := contacts[i].CallbackDate, contacts[j].CallbackDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
}
