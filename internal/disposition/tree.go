// Package disposition resolves a campaign's outcome tree and runs the mandatory
// disposition gate that follows every ended call.
package disposition

import (
	"sort"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Kind tags what choosing a node does
type Kind int

const (
	// Leaf finalizes immediately
	Leaf Kind = iota
	// Branch opens its children
	Branch
	// Scheduling needs a future timestamp before it finalizes
	Scheduling
)

func (k Kind) String() string {
	switch k {
	case Branch:
		return "branch"
	case Scheduling:
		return "scheduling"
	}
	return "leaf"
}

// Node is one outcome with its resolved shape
type Node struct {
	types.Disposition
	Kind     Kind
	Parent   *Node
	Children []*Node
}

// Tree is a campaign's active outcomes resolved from the flat parentId list
type Tree struct {
	roots []*Node
	byID  map[string]*Node
}

// NewTree builds the tree once. Inactive outcomes and outcomes restricted to another
// channel are dropped together with their descendants; outcomes whose parent is
// unknown are dropped too.
func NewTree(list []types.Disposition, channel types.Channel) *Tree {
	t := &Tree{byID: make(map[string]*Node)}

	candidates := make(map[string]*Node, len(list))
	for _, d := range list {
		if !d.IsActive {
			continue
		}
		if d.Channel != "" && channel != "" && d.Channel != channel {
			continue
		}
		candidates[d.ID] = &Node{Disposition: d}
	}

	// attach in input order so siblings with equal sort keys keep it
	for _, d := range list {
		n, ok := candidates[d.ID]
		if !ok {
			continue
		}
		if n.ParentID == nil || *n.ParentID == "" {
			t.roots = append(t.roots, n)
			continue
		}
		if parent, ok := candidates[*n.ParentID]; ok {
			n.Parent = parent
			parent.Children = append(parent.Children, n)
		}
	}

	var index func(nodes []*Node)
	index = func(nodes []*Node) {
		sortNodes(nodes)
		for _, n := range nodes {
			t.byID[n.ID] = n
			switch {
			case len(n.Children) > 0:
				n.Kind = Branch
			case n.ActionType.Scheduling():
				n.Kind = Scheduling
			default:
				n.Kind = Leaf
			}
			index(n.Children)
		}
	}
	index(t.roots)

	return t
}

// Roots returns the top-level outcomes
func (t *Tree) Roots() []*Node {
	return t.roots
}

// Lookup finds a reachable node by id
func (t *Tree) Lookup(id string) (*Node, bool) {
	n, ok := t.byID[id]
	return n, ok
}

// LookupCode finds a reachable node by its stable code
func (t *Tree) LookupCode(code string) (*Node, bool) {
	for _, n := range t.byID {
		if n.Code == code {
			return n, true
		}
	}
	return nil, false
}

// Len returns the number of reachable outcomes
func (t *Tree) Len() int {
	return len(t.byID)
}

func sortNodes(nodes []*Node) {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].SortOrder < nodes[j].SortOrder
	})
}
