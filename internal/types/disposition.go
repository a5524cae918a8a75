package types

import "time"

// ActionType is the side effect attached to a disposition outcome
type ActionType string

const (
	ActionNone          ActionType = "none"
	ActionCallback      ActionType = "callback"
	ActionScheduleEmail ActionType = "schedule_email"
	ActionScheduleSMS   ActionType = "schedule_sms"
	ActionDND           ActionType = "dnd"
	ActionComplete      ActionType = "complete"
	ActionConvert       ActionType = "convert"
	ActionSendEmail     ActionType = "send_email"
	ActionSendSMS       ActionType = "send_sms"
)

// Scheduling reports whether the action needs a future timestamp before it can finalize
func (a ActionType) Scheduling() bool {
	switch a {
	case ActionCallback, ActionScheduleEmail, ActionScheduleSMS:
		return true
	}
	return false
}

// Disposition is one node of a campaign's outcome tree, stored flat with a parent reference
type Disposition struct {
	ID         string     `json:"id"`
	CampaignID string     `json:"campaignId,omitempty"`
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	ParentID   *string    `json:"parentId"`
	ActionType ActionType `json:"actionType"`
	Channel    Channel    `json:"channel,omitempty"` // empty means any channel
	Icon       string     `json:"icon,omitempty"`
	Color      string     `json:"color,omitempty"`
	IsActive   bool       `json:"isActive"`
	SortOrder  int        `json:"sortOrder"`
}

// DispositionResult is what the gate hands back once an outcome is final
type DispositionResult struct {
	Disposition Disposition `json:"disposition"`
	ScheduledAt *time.Time  `json:"scheduledAt,omitempty"`
	AssignTo    *string     `json:"assignTo,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}
