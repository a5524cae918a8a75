package contactqueue

import (
	"fmt"
	"testing"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/clock"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/rs/zerolog"
)

var now = time.Date(2026, 5, 12, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func contact(id string, status types.ContactStatus, assigned *string, callback *time.Time) types.CampaignContact {
	return types.CampaignContact{
		ID:           id,
		CampaignID:   "camp-1",
		Status:       status,
		AssignedTo:   assigned,
		CallbackDate: callback,
	}
}

func ids(contacts []types.CampaignContact) []string {
	out := make([]string, len(contacts))
	for i, c := range contacts {
		out[i] = c.ID
	}
	return out
}

func equalIDs(t *testing.T, got []types.CampaignContact, want ...string) {
	t.Helper()
	gotIDs := ids(got)
	if len(gotIDs) != len(want) {
		t.Fatalf("expected %v, got %v", want, gotIDs)
	}
	for i := range want {
		if gotIDs[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, gotIDs)
		}
	}
}

func TestDueCallbackBeforePending(t *testing.T) {
	contacts := []types.CampaignContact{
		contact("pending", types.ContactPending, nil, nil),
		contact("callback", types.ContactCallbackScheduled, strPtr("u1"), at(-24*time.Hour)),
	}

	ordered := Partition(contacts, "u1", now, nil).Ordered()
	equalIDs(t, ordered, "callback", "pending")
}

func TestPartitionPriorityOrder(t *testing.T) {
	contacts := []types.CampaignContact{
		contact("other", types.ContactCallbackScheduled, strPtr("u2"), at(-time.Hour)),
		contact("pending", types.ContactPending, nil, nil),
		contact("team-upcoming", types.ContactCallbackScheduled, nil, at(time.Hour)),
		contact("my-upcoming", types.ContactCallbackScheduled, strPtr("u1"), at(2*time.Hour)),
		contact("team-due", types.ContactCallbackScheduled, nil, at(-time.Minute)),
		contact("my-due", types.ContactCallbackScheduled, strPtr("u1"), at(-time.Minute)),
	}

	p := Partition(contacts, "u1", now, nil)
	equalIDs(t, p.MyDueCallbacks, "my-due")
	equalIDs(t, p.TeamDueCallbacks, "team-due")
	equalIDs(t, p.MyUpcomingCallbacks, "my-upcoming")
	equalIDs(t, p.TeamUpcomingCallbacks, "team-upcoming")
	equalIDs(t, p.PendingContacts, "pending")
	equalIDs(t, p.OtherCallbacks, "other")
	equalIDs(t, p.Ordered(), "my-due", "team-due", "my-upcoming", "team-upcoming", "pending", "other")
}

func TestPartitionCoversEveryWorkableContactOnce(t *testing.T) {
	var contacts []types.CampaignContact
	statuses := []types.ContactStatus{
		types.ContactPending, types.ContactCallbackScheduled, types.ContactContacted,
		types.ContactCompleted, types.ContactNotInterested,
	}
	owners := []*string{nil, strPtr("u1"), strPtr("u2")}
	dates := []*time.Time{nil, at(-time.Hour), at(0), at(time.Hour)}

	n := 0
	workable := 0
	for _, s := range statuses {
		for _, o := range owners {
			for _, d := range dates {
				n++
				contacts = append(contacts, contact(fmt.Sprintf("c%d", n), s, o, d))
				if s.Workable() {
					workable++
				}
			}
		}
	}

	ordered := Partition(contacts, "u1", now, nil).Ordered()
	if len(ordered) != workable {
		t.Fatalf("expected %d workable contacts, got %d", workable, len(ordered))
	}
	seen := make(map[string]bool)
	for _, c := range ordered {
		if seen[c.ID] {
			t.Fatalf("contact %s delivered twice", c.ID)
		}
		seen[c.ID] = true
		if !c.Status.Workable() {
			t.Errorf("terminal contact %s delivered", c.ID)
		}
	}
}

func TestCallbackPartitionsSortByDateWithMissingLast(t *testing.T) {
	contacts := []types.CampaignContact{
		contact("no-date", types.ContactCallbackScheduled, strPtr("u1"), nil),
		contact("late", types.ContactCallbackScheduled, strPtr("u1"), at(3*time.Hour)),
		contact("early", types.ContactCallbackScheduled, strPtr("u1"), at(time.Hour)),
		contact("early-twin", types.ContactCallbackScheduled, strPtr("u1"), at(time.Hour)),
	}

	p := Partition(contacts, "u1", now, nil)
	equalIDs(t, p.MyUpcomingCallbacks, "early", "early-twin", "late", "no-date")
}

func TestCallbackDueExactlyNow(t *testing.T) {
	contacts := []types.CampaignContact{
		contact("now", types.ContactCallbackScheduled, nil, at(0)),
	}
	p := Partition(contacts, "u1", now, nil)
	equalIDs(t, p.TeamDueCallbacks, "now")
}

func TestPendingWithPastDateStaysPending(t *testing.T) {
	contacts := []types.CampaignContact{
		contact("stale-date", types.ContactPending, strPtr("u1"), at(-time.Hour)),
		contact("future-date", types.ContactPending, strPtr("u1"), at(time.Hour)),
	}
	p := Partition(contacts, "u1", now, nil)
	equalIDs(t, p.PendingContacts, "stale-date")
	equalIDs(t, p.MyUpcomingCallbacks, "future-date")
}

func TestDisposedContactsExcluded(t *testing.T) {
	contacts := []types.CampaignContact{
		contact("a", types.ContactPending, nil, nil),
		contact("b", types.ContactPending, nil, nil),
	}
	ordered := Partition(contacts, "u1", now, map[string]bool{"a": true}).Ordered()
	equalIDs(t, ordered, "b")
}

func TestQueueKeepsDisposedAcrossRefetch(t *testing.T) {
	q := NewQueue("u1", NewEngine(), zerolog.Nop())
	campaign := types.Campaign{ID: "camp-1"}
	contacts := []types.CampaignContact{
		contact("a", types.ContactPending, nil, nil),
		contact("b", types.ContactPending, nil, nil),
	}
	q.Load(campaign, contacts)
	q.MarkDisposed("a")

	// backend has not caught up yet: "a" is still pending
	q.Load(campaign, contacts)
	next, ok := q.Next(now)
	if !ok || next.ID != "b" {
		t.Fatalf("expected b next, got %v", next.ID)
	}

	q.Load(types.Campaign{ID: "camp-2"}, contacts)
	if q.Disposed("a") {
		t.Error("campaign switch must clear the disposed set")
	}
	if q.Len(now) != 2 {
		t.Errorf("expected 2 contacts, got %d", q.Len(now))
	}

	if dropped := q.Wipe(); dropped != 2 {
		t.Errorf("expected 2 dropped, got %d", dropped)
	}
	if _, ok := q.Next(now); ok {
		t.Error("expected empty queue after wipe")
	}
}

func TestSortPendingByField(t *testing.T) {
	born := func(year int) *time.Time {
		t := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}
	mk := func(id string, priority int, birth *time.Time) types.CampaignContact {
		c := contact(id, types.ContactPending, nil, nil)
		c.Customer.Priority = priority
		c.Customer.BirthDate = birth
		return c
	}

	tests := []struct {
		name     string
		settings types.CampaignSettings
		want     []string
	}{
		{"priority desc", types.CampaignSettings{SortField: SortFieldPriority, SortOrder: types.SortDesc}, []string{"c", "b", "a", "d"}},
		{"priority asc", types.CampaignSettings{SortField: SortFieldPriority, SortOrder: types.SortAsc}, []string{"a", "d", "b", "c"}},
		{"birth asc", types.CampaignSettings{SortField: SortFieldBirthDate}, []string{"c", "a", "b", "d"}},
		{"birth desc keeps missing last", types.CampaignSettings{SortField: SortFieldBirthDate, SortOrder: types.SortDesc}, []string{"b", "a", "c", "d"}},
		{"unknown field", types.CampaignSettings{SortField: "shoeSize"}, []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contacts := []types.CampaignContact{
				mk("a", 1, born(1980)),
				mk("b", 5, born(1990)),
				mk("c", 9, born(1970)),
				mk("d", 1, nil),
			}
			SortPending(contacts, tt.settings, nil, now, zerolog.Nop())
			equalIDs(t, contacts, tt.want...)
		})
	}
}

func TestSortPendingByExpression(t *testing.T) {
	mk := func(id string, priority, attempts int) types.CampaignContact {
		c := contact(id, types.ContactPending, nil, nil)
		c.Customer.Priority = priority
		c.AttemptCount = attempts
		return c
	}
	contacts := []types.CampaignContact{mk("a", 1, 0), mk("b", 3, 5), mk("c", 2, 0)}

	settings := types.CampaignSettings{SortExpression: "priority * 10 - attemptCount * 3"}
	SortPending(contacts, settings, NewEngine(), now, zerolog.Nop())
	equalIDs(t, contacts, "c", "b", "a")
}

func TestSortPendingBrokenExpressionKeepsOrder(t *testing.T) {
	contacts := []types.CampaignContact{
		contact("a", types.ContactPending, nil, nil),
		contact("b", types.ContactPending, nil, nil),
	}
	settings := types.CampaignSettings{SortExpression: "priority +"}
	SortPending(contacts, settings, NewEngine(), now, zerolog.Nop())
	equalIDs(t, contacts, "a", "b")
}

func TestEngineCachesPrograms(t *testing.T) {
	e := NewEngine()
	env := ContactEnv(types.CampaignContact{AttemptCount: 2}, now)

	for i := 0; i < 3; i++ {
		score, err := e.Score("attemptCount + 1", env)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if score != 3 {
			t.Errorf("expected 3, got %v", score)
		}
	}
	if len(e.programCache) != 1 {
		t.Errorf("expected 1 cached program, got %d", len(e.programCache))
	}

	if _, err := e.Score(`"text"`, env); err == nil {
		t.Error("expected error for non-numeric result")
	}
}

func TestAutoDialerFires(t *testing.T) {
	clk := clock.NewFake(now)
	d := NewAutoDialer(clk)

	fired := 0
	d.Arm(5*time.Second, func(uint64) { fired++ })
	clk.Advance(2 * time.Second)
	if got := d.Remaining(); got != 3 {
		t.Errorf("expected 3s remaining, got %d", got)
	}

	clk.Advance(3 * time.Second)
	if fired != 1 {
		t.Fatalf("expected countdown to fire once, got %d", fired)
	}
	if d.Armed() {
		t.Error("expected countdown disarmed after firing")
	}
}

func TestAutoDialerCancelAndRearm(t *testing.T) {
	clk := clock.NewFake(now)
	d := NewAutoDialer(clk)

	var fired []string
	d.Arm(5*time.Second, func(uint64) { fired = append(fired, "first") })
	d.Cancel()
	clk.Advance(10 * time.Second)
	if len(fired) != 0 {
		t.Fatalf("cancelled countdown fired: %v", fired)
	}

	d.Arm(5*time.Second, func(uint64) { fired = append(fired, "stale") })
	gen := d.Arm(2*time.Second, func(uint64) { fired = append(fired, "second") })
	clk.Advance(10 * time.Second)
	if len(fired) != 1 || fired[0] != "second" {
		t.Errorf("expected only the re-armed countdown to fire, got %v", fired)
	}
	if !d.Current(gen) {
		t.Error("expected fired generation to still be current")
	}
}
