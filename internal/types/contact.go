package types

import "time"

// ContactStatus is the lifecycle status of a campaign contact
type ContactStatus string

const (
	ContactPending           ContactStatus = "pending"
	ContactCallbackScheduled ContactStatus = "callback_scheduled"
	ContactContacted         ContactStatus = "contacted"
	ContactCompleted         ContactStatus = "completed"
	ContactNotInterested     ContactStatus = "not_interested"
)

// Workable reports whether a contact in this status can still be served by the queue
func (s ContactStatus) Workable() bool {
	return s == ContactPending || s == ContactCallbackScheduled
}

// Customer is the customer joined onto a campaign contact
type Customer struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	BirthDate   *time.Time `json:"birthDate,omitempty"`
	Priority    int        `json:"priority"`
	CompanyName string     `json:"companyName,omitempty"`
	Country     string     `json:"country,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// FullName returns "First Last" with empty parts dropped
func (c Customer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// CampaignContact is a customer's enrollment in one campaign
type CampaignContact struct {
	ID              string        `json:"id"`
	CustomerID      string        `json:"customerId"`
	CampaignID      string        `json:"campaignId"`
	Status          ContactStatus `json:"status"`
	CallbackDate    *time.Time    `json:"callbackDate"`
	AssignedTo      *string       `json:"assignedTo"` // nil means team owned
	AttemptCount    int           `json:"attemptCount"`
	DispositionCode string        `json:"dispositionCode,omitempty"`
	Customer        Customer      `json:"customer"`
}

// AssignedToUser reports whether the contact is owned by userID
func (c CampaignContact) AssignedToUser(userID string) bool {
	return c.AssignedTo != nil && *c.AssignedTo == userID
}

// TeamOwned reports whether no single agent owns the contact
func (c CampaignContact) TeamOwned() bool {
	return c.AssignedTo == nil
}

// ContactPatch is the PATCH body sent when a contact is disposed
type ContactPatch struct {
	Status          ContactStatus `json:"status"`
	DispositionCode string        `json:"dispositionCode"`
	AttemptCount    int           `json:"attemptCount"`
	CallbackDate    *time.Time    `json:"callbackDate"`
	AssignedTo      *string       `json:"assignedTo"`
	CallMeta        *CallMeta     `json:"callMeta,omitempty"`
	Notes           string        `json:"notes,omitempty"`
}

// SortOrder is the direction for pending contact ordering
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// CampaignSettings controls auto mode and pending contact ordering
type CampaignSettings struct {
	AutoMode         bool      `json:"autoMode"`
	AutoDelaySeconds int       `json:"autoDelaySeconds"`
	SortField        string    `json:"sortField,omitempty"` // priority, birthDate, lastName, createdAt, attemptCount
	SortOrder        SortOrder `json:"sortOrder,omitempty"`
	SortExpression   string    `json:"sortExpression,omitempty"` // numeric score, higher first
}

// Campaign is a set of contacts worked by agents
type Campaign struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	CountryCodes []string         `json:"countryCodes"` // empty means visible in every country
	IsActive     bool             `json:"isActive"`
	ScriptID     string           `json:"scriptId,omitempty"`
	Settings     CampaignSettings `json:"settings"`
}

// HistoryEntry is a persisted contact history row fetched from the backend
type HistoryEntry struct {
	ID         string            `json:"id"`
	CustomerID string            `json:"customerId"`
	Type       TimelineType      `json:"type"`
	Title      string            `json:"title"`
	Content    string            `json:"content,omitempty"`
	CreatedBy  string            `json:"createdBy,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
	Meta       map[string]string `json:"meta,omitempty"`
}

// TimelineEntry converts a persisted row for merged display
func (h HistoryEntry) TimelineEntry() TimelineEntry {
	return TimelineEntry{
		ID:        h.ID,
		Type:      h.Type,
		Title:     h.Title,
		Content:   h.Content,
		Timestamp: h.CreatedAt,
		Meta:      h.Meta,
	}
}
