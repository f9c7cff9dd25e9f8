package recipe

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

var ErrOrderCorrupt = errors.New("step order is not 1..N")

// Editor applies step list edits. Every method returns a new Recipe and
// leaves its argument untouched.
type Editor struct {
	// NewID generates transient step ids.
	NewID func() string
}

func NewEditor() *Editor {
	return &Editor{NewID: uuid.NewString}
}

func (e *Editor) newID() string {
	if e == nil || e.NewID == nil {
		return uuid.NewString()
	}
	return e.NewID()
}

// AppendStep adds action as the last step.
func (e *Editor) AppendStep(r Recipe, action Action) Recipe {
	out := r
	out.Steps = make([]Step, len(r.Steps), len(r.Steps)+1)
	copy(out.Steps, r.Steps)
	out.Steps = append(out.Steps, Step{
		Action:      action,
		Order:       len(r.Steps) + 1,
		TransientID: e.newID(),
	})
	return out
}

// RemoveStepAt drops the step at pos and renumbers the rest. pos must be a
// valid index; callers derive it from the rendered list.
func (e *Editor) RemoveStepAt(r Recipe, pos int) Recipe {
	mustIndex(r, pos)
	out := r
	out.Steps = make([]Step, 0, len(r.Steps)-1)
	out.Steps = append(out.Steps, r.Steps[:pos]...)
	out.Steps = append(out.Steps, r.Steps[pos+1:]...)
	reindex(out.Steps)
	return out
}

// MoveStep moves the step at from so that it ends up at index to.
func (e *Editor) MoveStep(r Recipe, from, to int) Recipe {
	mustIndex(r, from)
	mustIndex(r, to)
	out := r.Clone()
	if from == to {
		return out
	}
	moved := out.Steps[from]
	if from < to {
		copy(out.Steps[from:to], out.Steps[from+1:to+1])
	} else {
		copy(out.Steps[to+1:from+1], out.Steps[to:from])
	}
	out.Steps[to] = moved
	reindex(out.Steps)
	return out
}

// ReplaceSteps installs steps loaded from storage. Steps are stably sorted by
// their stored order and renumbered 1..N, so gaps or duplicates in a
// hand-edited document are repaired instead of carried forward. Transient ids
// are regenerated.
func (e *Editor) ReplaceSteps(r Recipe, steps []Step) Recipe {
	out := r
	out.Steps = make([]Step, len(steps))
	copy(out.Steps, steps)
	sort.SliceStable(out.Steps, func(i, j int) bool {
		return out.Steps[i].Order < out.Steps[j].Order
	})
	reindex(out.Steps)
	for i := range out.Steps {
		out.Steps[i].TransientID = e.newID()
	}
	return out
}

// CheckOrder reports ErrOrderCorrupt when steps[i].Order != i+1 for any i.
func CheckOrder(steps []Step) error {
	for i, s := range steps {
		if s.Order != i+1 {
			return fmt.Errorf("%w: position %d has order %d", ErrOrderCorrupt, i, s.Order)
		}
	}
	return nil
}

func reindex(steps []Step) {
	for i := range steps {
		steps[i].Order = i + 1
	}
}

func mustIndex(r Recipe, pos int) {
	if pos < 0 || pos >= len(r.Steps) {
		panic(fmt.Sprintf("recipe: step position %d out of range [0,%d)", pos, len(r.Steps)))
	}
}
