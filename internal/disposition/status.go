package disposition

import (
	"fmt"
	"strings"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// ResolveStatus maps an outcome's action to the contact status it produces
func ResolveStatus(action types.ActionType) types.ContactStatus {
	switch action {
	case types.ActionCallback, types.ActionScheduleEmail, types.ActionScheduleSMS:
		return types.ContactCallbackScheduled
	case types.ActionComplete, types.ActionConvert:
		return types.ContactCompleted
	case types.ActionDND:
		return types.ContactNotInterested
	default:
		return types.ContactContacted
	}
}

// BuildPatch computes the contact update for a final outcome. Scheduling outcomes carry
// the callback date and assignee; other outcomes clear the date and keep the owner.
func BuildPatch(contact types.CampaignContact, result types.DispositionResult, meta *types.CallMeta) types.ContactPatch {
	patch := types.ContactPatch{
		Status:          ResolveStatus(result.Disposition.ActionType),
		DispositionCode: result.Disposition.Code,
		AttemptCount:    contact.AttemptCount + 1,
		AssignedTo:      contact.AssignedTo,
		CallMeta:        meta,
		Notes:           result.Notes,
	}
	if result.Disposition.ActionType.Scheduling() {
		patch.CallbackDate = result.ScheduledAt
		patch.AssignedTo = result.AssignTo
	}
	return patch
}

// Apply returns the contact as it looks after the patch, for optimistic local state
func Apply(contact types.CampaignContact, patch types.ContactPatch) types.CampaignContact {
	contact.Status = patch.Status
	contact.DispositionCode = patch.DispositionCode
	contact.AttemptCount = patch.AttemptCount
	contact.CallbackDate = patch.CallbackDate
	contact.AssignedTo = patch.AssignedTo
	return contact
}

// Summary renders the timeline line for a disposed contact. agentID is the agent
// disposing it; a callback assigned to anyone else is shown with the assignee's id.
func Summary(result types.DispositionResult, meta *types.CallMeta, agentID string) string {
	parts := []string{result.Disposition.Name}
	if result.ScheduledAt != nil {
		owner := "team"
		switch {
		case result.AssignTo == nil:
		case *result.AssignTo == agentID:
			owner = "me"
		default:
			owner = *result.AssignTo
		}
		parts = append(parts, fmt.Sprintf("scheduled %s (%s)", result.ScheduledAt.Format("2006-01-02 15:04"), owner))
	}
	if meta != nil {
		parts = append(parts, fmt.Sprintf("ring %ds", meta.RingDurationSeconds))
		parts = append(parts, "talk "+formatTalk(meta.TalkDurationSeconds))
		if meta.HungUpBy != types.HangupUnknown {
			parts = append(parts, "hung up by "+string(meta.HungUpBy))
		}
	}
	return strings.Join(parts, " · ")
}

func formatTalk(secs int) string {
	d := time.Duration(secs) * time.Second
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), secs%60)
}
