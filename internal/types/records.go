package types

// DispositionRecord is a disposed contact persisted for audit and daily stats
type DispositionRecord struct {
	DateKey      string  `json:"dateKey" dynamodbav:"DateKey"`   // YYYY-MM-DD (partition key)
	RecordID     string  `json:"recordId" dynamodbav:"RecordID"` // sort key
	AgentID      string  `json:"agentId" dynamodbav:"AgentID"`
	CampaignID   string  `json:"campaignId" dynamodbav:"CampaignID"`
	ContactID    string  `json:"contactId" dynamodbav:"ContactID"`
	CustomerID   string  `json:"customerId" dynamodbav:"CustomerID"`
	Code         string  `json:"code" dynamodbav:"Code"`
	ActionType   string  `json:"actionType" dynamodbav:"ActionType"`
	NewStatus    string  `json:"newStatus" dynamodbav:"NewStatus"`
	CallbackDate string  `json:"callbackDate,omitempty" dynamodbav:"CallbackDate,omitempty"` // RFC3339
	AssignedTo   string  `json:"assignedTo,omitempty" dynamodbav:"AssignedTo,omitempty"`
	RingTime     float64 `json:"ringTime" dynamodbav:"RingTime"` // seconds
	TalkTime     float64 `json:"talkTime" dynamodbav:"TalkTime"` // seconds
	HungUpBy     string  `json:"hungUpBy,omitempty" dynamodbav:"HungUpBy,omitempty"`
	DisposedAt   string  `json:"disposedAt" dynamodbav:"DisposedAt"` // RFC3339
	Synced       bool    `json:"synced" dynamodbav:"Synced"`         // backend PATCH succeeded
}

// ShiftRecord is one agent shift persisted when it ends
type ShiftRecord struct {
	AgentID      string  `json:"agentId" dynamodbav:"AgentID"` // partition key
	ShiftID      string  `json:"shiftId" dynamodbav:"ShiftID"` // sort key
	Date         string  `json:"date" dynamodbav:"Date"`       // YYYY-MM-DD
	StartedAt    string  `json:"startedAt" dynamodbav:"StartedAt"`
	EndedAt      string  `json:"endedAt" dynamodbav:"EndedAt"`
	WorkTime     float64 `json:"workTime" dynamodbav:"WorkTime"`   // seconds
	BreakTime    float64 `json:"breakTime" dynamodbav:"BreakTime"` // seconds
	BreakCount   int     `json:"breakCount" dynamodbav:"BreakCount"`
	Dispositions int     `json:"dispositions" dynamodbav:"Dispositions"`
}
