package tasks

import (
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

var campaign = types.Campaign{ID: "camp-1", Name: "Spring"}

func contact(id string) types.CampaignContact {
	return types.CampaignContact{ID: id, CampaignID: "camp-1", Status: types.ContactPending}
}

func TestOpenFocusesOneTask(t *testing.T) {
	tr := NewTracker()
	now := time.Now()

	first := tr.Open(contact("cc-1"), campaign, types.ChannelPhone, now)
	second := tr.Open(contact("cc-2"), campaign, types.ChannelEmail, now)

	if tr.Len() != 2 {
		t.Fatalf("expected 2 tasks, got %d", tr.Len())
	}
	active, ok := tr.Active()
	if !ok || active.ID != second.ID {
		t.Fatal("latest opened task should be focused")
	}
	for _, task := range tr.List() {
		if task.ID == first.ID && task.Status != types.TaskWaiting {
			t.Errorf("unfocused task should wait, got %s", task.Status)
		}
	}

	// reopening an open contact focuses it instead of duplicating
	again := tr.Open(contact("cc-1"), campaign, types.ChannelPhone, now)
	if again.ID != first.ID || tr.Len() != 2 {
		t.Errorf("duplicate task created for open contact")
	}
	if active, _ := tr.Active(); active.ID != first.ID {
		t.Error("reopened task should be focused")
	}
	if again.CampaignName != "Spring" {
		t.Errorf("campaign name not carried: %q", again.CampaignName)
	}
}

func TestRemoveActive(t *testing.T) {
	tr := NewTracker()
	task := tr.Open(contact("cc-1"), campaign, types.ChannelPhone, time.Now())
	tr.Open(contact("cc-2"), campaign, types.ChannelPhone, time.Now())
	tr.Focus(task.ID)

	if !tr.RemoveContact("cc-1") {
		t.Fatal("remove failed")
	}
	if _, ok := tr.Active(); ok {
		t.Error("nothing should be focused after removing the active task")
	}
	if tr.Len() != 1 {
		t.Errorf("expected 1 task left, got %d", tr.Len())
	}
	if tr.Remove("missing") {
		t.Error("removing an unknown task should report false")
	}
}

func TestWrapUpSurvivesFocus(t *testing.T) {
	tr := NewTracker()
	task := tr.Open(contact("cc-1"), campaign, types.ChannelPhone, time.Now())
	tr.SetStatus(task.ID, types.TaskWrapUp)
	other := tr.Open(contact("cc-2"), campaign, types.ChannelPhone, time.Now())
	tr.Focus(task.ID)

	got, _ := tr.ByContact("cc-1")
	if got.Status != types.TaskWrapUp {
		t.Errorf("expected wrap_up kept, got %s", got.Status)
	}
	got, _ = tr.ByContact(other.Contact.ID)
	if got.Status != types.TaskWaiting {
		t.Errorf("expected waiting, got %s", got.Status)
	}
}

func TestClear(t *testing.T) {
	tr := NewTracker()
	tr.Open(contact("cc-1"), campaign, types.ChannelPhone, time.Now())
	tr.Clear()
	if tr.Len() != 0 {
		t.Error("expected no tasks")
	}
	if _, ok := tr.Active(); ok {
		t.Error("expected no active task")
	}
}

func TestTimelineResetAndMerge(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	tl := NewTimeline()
	tl.Reset("cc-1")
	tl.Append(types.TimelineCall, "Call", "", nil, base.Add(time.Minute))
	entry := tl.Append(types.TimelineSystem, "Disposed", "Sale", nil, base.Add(2*time.Minute))

	history := []types.HistoryEntry{
		{ID: "h-1", Type: types.TimelineNote, Title: "Old note", CreatedAt: base},
		{ID: entry.ID, Type: types.TimelineSystem, Title: "Disposed", CreatedAt: base.Add(2 * time.Minute)},
	}
	merged := Merge(history, tl.Entries())
	if len(merged) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(merged))
	}
	if merged[0].ID != entry.ID || merged[2].ID != "h-1" {
		t.Errorf("unexpected order: %s, %s, %s", merged[0].Title, merged[1].Title, merged[2].Title)
	}

	tl.Reset("cc-2")
	if len(tl.Entries()) != 0 || tl.ContactID() != "cc-2" {
		t.Error("reset should clear the log")
	}
}
