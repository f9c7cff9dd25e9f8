package recipe

import (
	"errors"
	"strings"
	"time"
)

var ErrEmptyName = errors.New("recipe name is required")

// Recipe is a named, ordered list of steps persisted as one document.
// ID is empty until the store assigns one.
type Recipe struct {
	ID        string
	Name      string
	OwnerID   string
	Steps     []Step
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecipe returns an empty, unsaved recipe.
func NewRecipe(name string) (Recipe, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Recipe{}, ErrEmptyName
	}
	return Recipe{Name: name, Steps: []Step{}}, nil
}

// Len returns the number of steps.
func (r Recipe) Len() int {
	return len(r.Steps)
}

// StepAt returns the step at a 0-based position.
func (r Recipe) StepAt(pos int) (Step, bool) {
	if pos < 0 || pos >= len(r.Steps) {
		return Step{}, false
	}
	return r.Steps[pos], true
}

// Clone returns a recipe whose step slice does not alias r's.
func (r Recipe) Clone() Recipe {
	out := r
	out.Steps = make([]Step, len(r.Steps))
	copy(out.Steps, r.Steps)
	return out
}
