package tasks

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Timeline is the append-only log for the contact currently on the canvas
type Timeline struct {
	contactID string
	entries   []types.TimelineEntry
}

// NewTimeline creates an empty timeline
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Reset starts a fresh log for another contact
func (tl *Timeline) Reset(contactID string) {
	tl.contactID = contactID
	tl.entries = nil
}

// ContactID returns the contact the log belongs to
func (tl *Timeline) ContactID() string {
	return tl.contactID
}

// Append adds an entry and returns it
func (tl *Timeline) Append(kind types.TimelineType, title, content string, meta map[string]string, at time.Time) types.TimelineEntry {
	entry := types.TimelineEntry{
		ID:        uuid.New().String(),
		Type:      kind,
		Title:     title,
		Content:   content,
		Timestamp: at,
		Meta:      meta,
	}
	tl.entries = append(tl.entries, entry)
	return entry
}

// Entries returns a copy of the log, oldest first
func (tl *Timeline) Entries() []types.TimelineEntry {
	out := make([]types.TimelineEntry, len(tl.entries))
	copy(out, tl.entries)
	return out
}

// Merge combines persisted history with the session log, newest first. Persisted
// entries already mirrored in the session log by id are not duplicated.
func Merge(history []types.HistoryEntry, session []types.TimelineEntry) []types.TimelineEntry {
	seen := make(map[string]struct{}, len(session))
	out := make([]types.TimelineEntry, 0, len(history)+len(session))
	for _, e := range session {
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	for _, h := range history {
		if _, ok := seen[h.ID]; ok {
			continue
		}
		out = append(out, h.TimelineEntry())
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(entries []types.TimelineEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}
