package disposition

import (
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/apperr"
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// View is the sub-view the gate currently shows
type View string

const (
	ViewClosed   View = "closed"
	ViewRoot     View = "root"
	ViewChildren View = "children"
	ViewSchedule View = "schedule"
)

// Option is one selectable outcome in the current view
type Option struct {
	ID         string           `json:"id"`
	Code       string           `json:"code"`
	Name       string           `json:"name"`
	Kind       string           `json:"kind"`
	ActionType types.ActionType `json:"actionType"`
	Icon       string           `json:"icon,omitempty"`
	Color      string           `json:"color,omitempty"`
}

// State is a read-only snapshot of the gate
type State struct {
	Open      bool     `json:"open"`
	Forced    bool     `json:"forced"`
	ContactID string   `json:"contactId,omitempty"`
	View      View     `json:"view"`
	Current   string   `json:"current,omitempty"`
	Options   []Option `json:"options"`
}

// Gate walks an agent through the outcome tree. A forced gate can only be left with a
// final outcome; a voluntary one may also be dismissed. Gate is not safe for concurrent
// use; the owning session serializes access.
type Gate struct {
	tree      *Tree
	open      bool
	forced    bool
	contactID string
	view      View
	current   *Node
}

// NewGate returns a closed gate
func NewGate() *Gate {
	return &Gate{view: ViewClosed}
}

// Open shows the root outcomes for a contact. Reopening an already forced gate keeps it forced.
// An empty tree is never forced, since no outcome could close it.
func (g *Gate) Open(tree *Tree, contactID string, forced bool) {
	if g.open && g.forced && g.contactID == contactID {
		return
	}
	if tree == nil || tree.Len() == 0 {
		forced = false
	}
	g.tree = tree
	g.open = true
	g.forced = forced
	g.contactID = contactID
	g.view = ViewRoot
	g.current = nil
}

// IsOpen reports whether the gate is showing
func (g *Gate) IsOpen() bool {
	return g.open
}

// Forced reports whether the gate can only be closed with an outcome
func (g *Gate) Forced() bool {
	return g.open && g.forced
}

// ContactID returns the contact the gate was opened for
func (g *Gate) ContactID() string {
	return g.contactID
}

// Select chooses an option in the current view. Leaves finalize and close the gate;
// branches and scheduling outcomes move to their sub-view and return nil.
func (g *Gate) Select(id string) (*types.DispositionResult, error) {
	if !g.open {
		return nil, apperr.Precondition("disposition gate is not open")
	}
	if g.view == ViewSchedule {
		return nil, apperr.Precondition("confirm or go back from the schedule view first")
	}

	node, ok := g.tree.Lookup(id)
	if !ok || !g.offered(node) {
		return nil, apperr.NotFound("disposition not available: " + id)
	}

	switch node.Kind {
	case Branch:
		g.view = ViewChildren
		g.current = node
		return nil, nil
	case Scheduling:
		g.view = ViewSchedule
		g.current = node
		return nil, nil
	}

	result := &types.DispositionResult{Disposition: node.Disposition}
	g.close()
	return result, nil
}

// ConfirmSchedule finalizes the pending scheduling outcome. The date must lie in the
// future; a nil assignee leaves the follow-up with the team.
func (g *Gate) ConfirmSchedule(at, now time.Time, assignTo *string, notes string) (*types.DispositionResult, error) {
	if !g.open || g.view != ViewSchedule || g.current == nil {
		return nil, apperr.Precondition("no scheduling outcome selected")
	}
	if at.IsZero() {
		return nil, apperr.Validation("scheduled date is required")
	}
	if !at.After(now) {
		return nil, apperr.Validation("scheduled date must be in the future")
	}

	when := at
	result := &types.DispositionResult{
		Disposition: g.current.Disposition,
		ScheduledAt: &when,
		AssignTo:    assignTo,
		Notes:       notes,
	}
	g.close()
	return result, nil
}

// Back returns to the enclosing view
func (g *Gate) Back() error {
	if !g.open {
		return apperr.Precondition("disposition gate is not open")
	}
	if g.current == nil {
		return nil
	}
	parent := g.current.Parent
	if parent == nil {
		g.view = ViewRoot
		g.current = nil
		return nil
	}
	g.view = ViewChildren
	g.current = parent
	return nil
}

// Dismiss closes a voluntary gate. A forced gate refuses.
func (g *Gate) Dismiss() error {
	if !g.open {
		return nil
	}
	if g.forced {
		return apperr.Locked("a disposition is required before continuing")
	}
	g.close()
	return nil
}

// Reset force-closes the gate regardless of mode, used when the session is torn down
func (g *Gate) Reset() {
	g.close()
}

// State returns the current view and its options
func (g *Gate) State() State {
	s := State{
		Open:      g.open,
		Forced:    g.open && g.forced,
		ContactID: g.contactID,
		View:      g.view,
		Options:   []Option{},
	}
	if !g.open {
		return s
	}
	if g.current != nil {
		s.Current = g.current.ID
	}
	for _, n := range g.options() {
		s.Options = append(s.Options, Option{
			ID:         n.ID,
			Code:       n.Code,
			Name:       n.Name,
			Kind:       n.Kind.String(),
			ActionType: n.ActionType,
			Icon:       n.Icon,
			Color:      n.Color,
		})
	}
	return s
}

func (g *Gate) options() []*Node {
	switch g.view {
	case ViewRoot:
		return g.tree.Roots()
	case ViewChildren:
		return g.current.Children
	}
	return nil
}

func (g *Gate) offered(n *Node) bool {
	for _, o := range g.options() {
		if o == n {
			return true
		}
	}
	return false
}

func (g *Gate) close() {
	g.open = false
	g.forced = false
	g.contactID = ""
	g.view = ViewClosed
	g.current = nil
}
