package tasks

import (
	"time"

	"github.com/google/uuid"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Tracker holds the contacts an agent has open at the same time. Exactly one task is
// focused (active); the others wait. Tracker is not safe for concurrent use.
type Tracker struct {
	tasks    []types.Task
	activeID string
}

// NewTracker creates an empty tracker
func NewTracker() *Tracker {
	return &Tracker{}
}

// Open focuses a task for the contact, creating it if the contact is not open yet
func (t *Tracker) Open(contact types.CampaignContact, campaign types.Campaign, channel types.Channel, now time.Time) types.Task {
	if idx := t.indexByContact(contact.ID); idx >= 0 {
		t.tasks[idx].Contact = contact
		t.focus(idx)
		return t.tasks[idx]
	}

	task := types.Task{
		ID:           uuid.New().String(),
		Contact:      contact,
		CampaignID:   campaign.ID,
		CampaignName: campaign.Name,
		Channel:      channel,
		StartedAt:    now,
		Status:       types.TaskActive,
	}
	t.tasks = append(t.tasks, task)
	t.focus(len(t.tasks) - 1)
	return task
}

// Focus switches the active task
func (t *Tracker) Focus(taskID string) (types.Task, bool) {
	idx := t.index(taskID)
	if idx < 0 {
		return types.Task{}, false
	}
	t.focus(idx)
	return t.tasks[idx], true
}

// Active returns the focused task
func (t *Tracker) Active() (types.Task, bool) {
	idx := t.index(t.activeID)
	if idx < 0 {
		return types.Task{}, false
	}
	return t.tasks[idx], true
}

// ByContact finds the open task for a campaign contact
func (t *Tracker) ByContact(contactID string) (types.Task, bool) {
	idx := t.indexByContact(contactID)
	if idx < 0 {
		return types.Task{}, false
	}
	return t.tasks[idx], true
}

// SetStatus updates a task's status; wrap_up is kept on the task until it is removed
func (t *Tracker) SetStatus(taskID string, status types.TaskStatus) bool {
	idx := t.index(taskID)
	if idx < 0 {
		return false
	}
	t.tasks[idx].Status = status
	return true
}

// SetChannel records the channel the agent is working the task on
func (t *Tracker) SetChannel(taskID string, channel types.Channel) bool {
	idx := t.index(taskID)
	if idx < 0 {
		return false
	}
	t.tasks[idx].Channel = channel
	return true
}

// Remove drops a task. Removing the focused task leaves nothing focused.
func (t *Tracker) Remove(taskID string) bool {
	idx := t.index(taskID)
	if idx < 0 {
		return false
	}
	t.tasks = append(t.tasks[:idx:idx], t.tasks[idx+1:]...)
	if t.activeID == taskID {
		t.activeID = ""
	}
	return true
}

// RemoveContact drops the task opened for a contact, if any
func (t *Tracker) RemoveContact(contactID string) bool {
	idx := t.indexByContact(contactID)
	if idx < 0 {
		return false
	}
	return t.Remove(t.tasks[idx].ID)
}

// List returns a copy of all open tasks in opening order
func (t *Tracker) List() []types.Task {
	out := make([]types.Task, len(t.tasks))
	copy(out, t.tasks)
	return out
}

// Len returns the number of open tasks
func (t *Tracker) Len() int {
	return len(t.tasks)
}

// Clear drops every task, used on session end
func (t *Tracker) Clear() {
	t.tasks = nil
	t.activeID = ""
}

func (t *Tracker) focus(idx int) {
	for i := range t.tasks {
		if i == idx {
			if t.tasks[i].Status != types.TaskWrapUp {
				t.tasks[i].Status = types.TaskActive
			}
			continue
		}
		if t.tasks[i].Status == types.TaskActive {
			t.tasks[i].Status = types.TaskWaiting
		}
	}
	t.activeID = t.tasks[idx].ID
}

func (t *Tracker) index(taskID string) int {
	if taskID == "" {
		return -1
	}
	for i := range t.tasks {
		if t.tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

func (t *Tracker) indexByContact(contactID string) int {
	for i := range t.tasks {
		if t.tasks[i].Contact.ID == contactID {
			return i
		}
	}
	return -1
}
