package types

import "time"

// Channel is a contact channel in the workspace
type Channel string

const (
	ChannelPhone Channel = "phone"
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

// TaskStatus is the status of an open work item
type TaskStatus string

const (
	TaskActive  TaskStatus = "active"
	TaskWaiting TaskStatus = "waiting"
	TaskWrapUp  TaskStatus = "wrap_up"
)

// Task is an in-memory open work item for one contact
type Task struct {
	ID           string          `json:"id"`
	Contact      CampaignContact `json:"contact"`
	CampaignID   string          `json:"campaignId"`
	CampaignName string          `json:"campaignName"`
	Channel      Channel         `json:"channel"`
	StartedAt    time.Time       `json:"startedAt"`
	Status       TaskStatus      `json:"status"`
}

// TimelineType classifies a timeline entry
type TimelineType string

const (
	TimelineCall   TimelineType = "call"
	TimelineEmail  TimelineType = "email"
	TimelineSMS    TimelineType = "sms"
	TimelineNote   TimelineType = "note"
	TimelineSystem TimelineType = "system"
)

// TimelineEntry is a session-scoped log line for the currently open contact
type TimelineEntry struct {
	ID        string            `json:"id"`
	Type      TimelineType      `json:"type"`
	Title     string            `json:"title"`
	Content   string            `json:"content,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Meta      map[string]string `json:"meta,omitempty"`
}
