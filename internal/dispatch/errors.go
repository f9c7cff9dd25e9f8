package dispatch

import "errors"

var (
	ErrNoProject = errors.New("no project selected")
	ErrNoRecipe  = errors.New("no recipe selected")
)

// PreconditionError is returned before any write is attempted. Its message
// is meant to be shown to the user as-is.
type PreconditionError struct {
	Err error
}

func (e *PreconditionError) Error() string { return e.Err.Error() }

func (e *PreconditionError) Unwrap() error { return e.Err }

func precondition(err error) error {
	return &PreconditionError{Err: err}
}

// IsPrecondition reports whether err came from a failed precondition.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}
