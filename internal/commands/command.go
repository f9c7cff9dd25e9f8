package commands

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/rahul/stepdeck/internal/dispatch"
	"github.com/rahul/stepdeck/internal/recipe"
	"github.com/rahul/stepdeck/internal/session"
	"github.com/rahul/stepdeck/internal/store"
)

// Command is one chat command. Replies are Telegram-flavoured HTML.
type Command interface {
	Name() string
	Description() string
	Usage() string
	Execute(ctx context.Context, chatID string, args string) (string, error)
}

// Registry manages the set of available commands.
type Registry struct {
	Commands map[string]Command
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		Commands: make(map[string]Command),
	}
}

func (r *Registry) Register(c Command) {
	if _, ok := r.Commands[c.Name()]; !ok {
		r.order = append(r.order, c.Name())
	}
	r.Commands[c.Name()] = c
}

func (r *Registry) Get(name string) Command {
	return r.Commands[name]
}

// List returns commands in registration order.
func (r *Registry) List() []Command {
	out := make([]Command, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.Commands[name])
	}
	return out
}

// Deck is what every command works against.
type Deck struct {
	Session    *session.Session
	Workspaces *session.Workspaces
}

// RegisterAll installs the full command set.
func RegisterAll(r *Registry, d *Deck) {
	r.Register(&HelpCommand{Registry: r})
	r.Register(&WhoAmICommand{d})
	r.Register(&ProjectsCommand{d})
	r.Register(&ProjectCommand{d})
	r.Register(&NewProjectCommand{d})
	r.Register(&RecipesCommand{d})
	r.Register(&NewCommand{d})
	r.Register(&EditCommand{d})
	r.Register(&StepsCommand{d})
	r.Register(&AddCommand{d})
	r.Register(&RemoveCommand{d})
	r.Register(&MoveCommand{d})
	r.Register(&SaveCommand{d})
	r.Register(&DiscardCommand{d})
	r.Register(&DeleteCommand{d})
	r.Register(&RecordCommand{d})
	r.Register(&PlayCommand{d})
}

// UsageError means the command was called with bad arguments.
type UsageError struct {
	Usage string
	Msg   string
}

func (e *UsageError) Error() string {
	if e.Msg == "" {
		return "usage: " + e.Usage
	}
	return e.Msg + "\nusage: " + e.Usage
}

func usage(c Command, msg string) error {
	return &UsageError{Usage: c.Usage(), Msg: msg}
}

// UserFacing reports whether err is the operator's to fix. Such errors are
// shown as-is; anything else is an infrastructure failure.
func UserFacing(err error) bool {
	var ue *UsageError
	switch {
	case errors.As(err, &ue), dispatch.IsPrecondition(err):
		return true
	case errors.Is(err, session.ErrNotSignedIn),
		errors.Is(err, session.ErrNothingToSave),
		errors.Is(err, session.ErrUnsavedChanges),
		errors.Is(err, session.ErrUnknownRecipe),
		errors.Is(err, session.ErrUnknownProject),
		errors.Is(err, session.ErrPositionOutOfRange),
		errors.Is(err, recipe.ErrEmptyName),
		errors.Is(err, recipe.ErrUnknownKind),
		store.IsNotFound(err):
		return true
	}
	return false
}

// ReplyForError turns a command error into the text sent back to the chat.
// Messages are escaped rather than sanitized so usage lines keep their <args>.
func ReplyForError(err error) string {
	if UserFacing(err) {
		return html.EscapeString(err.Error())
	}
	return "failed: " + html.EscapeString(err.Error())
}

var strict = bluemonday.StrictPolicy()

// sanitize strips markup from user content and escapes what is left, so it
// can be embedded in an HTML reply.
func sanitize(s string) string {
	return strict.Sanitize(s)
}

// parsePosition turns a 1-based position typed by the operator into an index.
func parsePosition(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%q is not a step number", s)
	}
	return n - 1, nil
}

func formatRecipe(r recipe.Recipe, dirty bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>", sanitize(r.Name))
	if dirty {
		b.WriteString(" (unsaved)")
	}
	b.WriteString("\n")
	if r.Len() == 0 {
		b.WriteString("No steps yet. Add one with /add.")
		return b.String()
	}
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "%d. %s <code>%s</code>\n", s.Order, s.Kind(), sanitize(s.Value()))
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatJob(job dispatch.Job) string {
	return fmt.Sprintf("Queued %s job <code>%s</code>.", strings.ToLower(string(job.Type)), job.ID)
}
