// Package script walks a campaign call script step by step, following answer branches
// when the script declares them.
package script

import (
	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
)

// Progress is how far the agent got through the script
type Progress struct {
	Visited int `json:"visited"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// Runner holds navigation state for one script. Not safe for concurrent use.
type Runner struct {
	script  types.Script
	indexOf map[string]int
	idMode  bool

	current  int
	selected map[string][]string
	visited  map[int]struct{}
	history  []int
}

// NewRunner prepares a runner positioned on the first step
func NewRunner(script types.Script) *Runner {
	r := &Runner{
		script:  script,
		indexOf: make(map[string]int, len(script.Steps)),
	}
	for i, step := range script.Steps {
		if _, dup := r.indexOf[step.ID]; !dup {
			r.indexOf[step.ID] = i
		}
		if step.NextStepID != "" {
			r.idMode = true
		}
		for _, el := range step.Elements {
			for _, opt := range el.Options {
				if opt.NextStepID != "" {
					r.idMode = true
				}
			}
		}
	}
	r.Reset()
	return r
}

// Reset returns to the first step and forgets all answers
func (r *Runner) Reset() {
	r.current = 0
	r.selected = make(map[string][]string)
	r.visited = map[int]struct{}{0: {}}
	r.history = []int{0}
}

// Script returns the script being run
func (r *Runner) Script() types.Script {
	return r.script
}

// IDMode reports whether any step or option declares a branch target
func (r *Runner) IDMode() bool {
	return r.idMode
}

// CurrentIndex returns the index of the shown step
func (r *Runner) CurrentIndex() int {
	return r.current
}

// Current returns the shown step
func (r *Runner) Current() (types.ScriptStep, bool) {
	if r.current < 0 || r.current >= len(r.script.Steps) {
		return types.ScriptStep{}, false
	}
	return r.script.Steps[r.current], true
}

// AtEnd reports whether the shown step is the last one or marked as an end step
func (r *Runner) AtEnd() bool {
	step, ok := r.Current()
	if !ok {
		return true
	}
	return step.IsEndStep || r.current == len(r.script.Steps)-1
}

// Select records a single answer for an element, replacing any earlier one
func (r *Runner) Select(elementID, value string) {
	r.selected[elementID] = []string{value}
}

// SetValues records a multi-value answer (checkbox groups, multiselects)
func (r *Runner) SetValues(elementID string, values []string) {
	r.selected[elementID] = append([]string(nil), values...)
}

// Value returns the first answer recorded for an element
func (r *Runner) Value(elementID string) (string, bool) {
	v := r.selected[elementID]
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// Answers returns a copy of every recorded answer
func (r *Runner) Answers() map[string][]string {
	out := make(map[string][]string, len(r.selected))
	for k, v := range r.selected {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// GoNext advances to the branch target of the first answered branching element, the
// step's own target, or the next step in order. It returns false when it cannot move.
func (r *Runner) GoNext() bool {
	step, ok := r.Current()
	if !ok {
		return false
	}

	if r.idMode {
		if target, ok := r.branchTarget(step); ok {
			r.moveTo(target)
			return true
		}
		if idx, ok := r.indexOf[step.NextStepID]; ok && step.NextStepID != "" {
			r.moveTo(idx)
			return true
		}
	}

	if r.current >= len(r.script.Steps)-1 {
		return false
	}
	r.moveTo(r.current + 1)
	return true
}

// GoBack returns to the exact previous step. With no history left it steps back by index.
func (r *Runner) GoBack() bool {
	if len(r.history) > 1 {
		r.history = r.history[:len(r.history)-1]
		r.current = r.history[len(r.history)-1]
		return true
	}
	if r.current == 0 {
		return false
	}
	r.current--
	r.history = []int{r.current}
	return true
}

// Progress reports visited steps against the script length
func (r *Runner) Progress() Progress {
	total := len(r.script.Steps)
	p := Progress{Visited: len(r.visited), Total: total}
	if total > 0 {
		p.Percent = p.Visited * 100 / total
	}
	return p
}

func (r *Runner) branchTarget(step types.ScriptStep) (int, bool) {
	for _, el := range step.Elements {
		if !el.Type.Branching() {
			continue
		}
		value, ok := r.Value(el.ID)
		if !ok {
			continue
		}
		for _, opt := range el.Options {
			if opt.Value != value || opt.NextStepID == "" {
				continue
			}
			// unknown targets fall through to linear navigation
			if idx, ok := r.indexOf[opt.NextStepID]; ok {
				return idx, true
			}
		}
	}
	return 0, false
}

func (r *Runner) moveTo(idx int) {
	r.current = idx
	r.visited[idx] = struct{}{}
	r.history = append(r.history, idx)
}
