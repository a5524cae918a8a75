// Package calltiming mirrors the softphone call state and freezes ring/talk timing
// when a call ends so it can travel with the disposition.
package calltiming

import (
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Transition describes the effect of one observed call state
type Transition struct {
	From types.CallState
	To   types.CallState
	// Ended is set when the call finished with this transition
	Ended bool
	// GateRequired is set when the ended call must be disposed before moving on
	GateRequired bool
	// Meta is the frozen timing, set when Ended and a contact was focused
	Meta *types.CallMeta
}

// Tracker follows idle -> connecting/ringing -> active <-> on_hold -> ended -> idle.
// It is not safe for concurrent use.
type Tracker struct {
	state     types.CallState
	ringStart *time.Time
	ringEnd   *time.Time
	callStart *time.Time
	callEnd   *time.Time
	reached   bool // the call rang or connected
	number    string
	hungUpBy  types.HangupParty
	frozen    *types.CallMeta
}

// NewTracker creates an idle tracker
func NewTracker() *Tracker {
	return &Tracker{state: types.CallIdle}
}

// State returns the mirrored call state
func (t *Tracker) State() types.CallState {
	return t.state
}

// Observe applies a call state reported at time at. focused tells whether a campaign
// contact is loaded; timing is only frozen for focused calls.
func (t *Tracker) Observe(ev types.CallEvent, at time.Time, focused bool) Transition {
	from := t.state
	to := ev.State
	tr := Transition{From: from, To: to}
	if from == to || !to.Valid() {
		return tr
	}

	switch to {
	case types.CallConnecting, types.CallRinging:
		if from == types.CallIdle || from == types.CallEnded {
			t.reset()
		}
		if t.ringStart == nil {
			t.ringStart = timePtr(at)
		}
		if ev.Number != "" {
			t.number = ev.Number
		}
		if to == types.CallRinging {
			t.reached = true
		}

	case types.CallActive, types.CallOnHold:
		if t.ringStart != nil && t.ringEnd == nil {
			t.ringEnd = timePtr(at)
		}
		if t.callStart == nil {
			t.callStart = timePtr(at)
		}
		t.reached = true

	case types.CallEnded, types.CallIdle:
		if from.InProgress() {
			tr.Ended = true
			tr.GateRequired = t.reached && focused
			t.finish(at, ev.HungUpBy)
			if focused {
				meta := t.meta()
				t.frozen = &meta
				tr.Meta = &meta
			}
		}
		if to == types.CallIdle {
			t.resetTimers()
		}
	}

	t.state = to
	return tr
}

// TakeMeta returns the frozen timing of the last ended call and clears it
func (t *Tracker) TakeMeta() *types.CallMeta {
	meta := t.frozen
	t.frozen = nil
	return meta
}

// PeekMeta returns the frozen timing without clearing it
func (t *Tracker) PeekMeta() *types.CallMeta {
	return t.frozen
}

// RingSeconds returns the live ring duration, zero when not ringing
func (t *Tracker) RingSeconds(now time.Time) int {
	if t.ringStart == nil || t.ringEnd != nil || t.callEnd != nil {
		return 0
	}
	return seconds(now.Sub(*t.ringStart))
}

// TalkSeconds returns the live talk duration, zero when not connected
func (t *Tracker) TalkSeconds(now time.Time) int {
	if t.callStart == nil || t.callEnd != nil {
		return 0
	}
	return seconds(now.Sub(*t.callStart))
}

// Reset drops all call state, used when the session is torn down
func (t *Tracker) Reset() {
	t.reset()
	t.state = types.CallIdle
}

func (t *Tracker) finish(at time.Time, by types.HangupParty) {
	t.callEnd = timePtr(at)
	if t.ringStart != nil && t.ringEnd == nil {
		t.ringEnd = timePtr(at)
	}
	t.frozen = nil
	t.hungUpBy = by
}

func (t *Tracker) meta() types.CallMeta {
	m := types.CallMeta{
		HungUpBy:      t.hungUpBy,
		RingStartedAt: t.ringStart,
		CallStartedAt: t.callStart,
		CallEndedAt:   t.callEnd,
		Number:        t.number,
	}
	if t.ringStart != nil && t.ringEnd != nil {
		m.RingDurationSeconds = seconds(t.ringEnd.Sub(*t.ringStart))
	}
	if t.callStart != nil && t.callEnd != nil {
		m.TalkDurationSeconds = seconds(t.callEnd.Sub(*t.callStart))
	}
	return m
}

func (t *Tracker) reset() {
	t.resetTimers()
	t.frozen = nil
}

func (t *Tracker) resetTimers() {
	t.ringStart = nil
	t.ringEnd = nil
	t.callStart = nil
	t.callEnd = nil
	t.reached = false
	t.number = ""
	t.hungUpBy = types.HangupUnknown
}

func seconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
