package commands

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rahul/stepdeck/internal/dispatch"
	"github.com/rahul/stepdeck/internal/observability"
	"github.com/rahul/stepdeck/internal/recipe"
	"github.com/rahul/stepdeck/internal/session"
	"github.com/rahul/stepdeck/internal/store"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "stepdeck.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := observability.NewWriterLogger(io.Discard)
	editor := recipe.NewEditor()
	s := session.New(
		session.NewStaticAuth(session.User{ID: "op-1", DisplayName: "Operator"}),
		store.NewRecipeRepo(st, editor, logger),
		store.NewProjectRepo(st),
		time.Hour,
	)
	if err := s.Open(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)

	d := dispatch.NewDispatcher(store.NewJobQueue(st), logger)
	reg := NewRegistry()
	RegisterAll(reg, &Deck{Session: s, Workspaces: session.NewWorkspaces(s, editor, d)})
	return reg
}

func run(t *testing.T, reg *Registry, chatID, name, args string) (string, error) {
	t.Helper()
	cmd := reg.Get(name)
	if cmd == nil {
		t.Fatalf("command %q not registered", name)
	}
	return cmd.Execute(context.Background(), chatID, args)
}

func mustRun(t *testing.T, reg *Registry, chatID, name, args string) string {
	t.Helper()
	reply, err := run(t, reg, chatID, name, args)
	if err != nil {
		t.Fatalf("/%s %s: %v", name, args, err)
	}
	return reply
}

func TestRegistryKeepsRegistrationOrder(t *testing.T) {
	reg := newTestRegistry(t)
	want := []string{"help", "whoami", "projects", "project", "newproject", "recipes", "new", "edit",
		"steps", "add", "rm", "move", "save", "discard", "delete", "record", "play"}
	got := reg.List()
	if len(got) != len(want) {
		t.Fatalf("got %d commands, want %d", len(got), len(want))
	}
	for i, c := range got {
		if c.Name() != want[i] {
			t.Errorf("command %d = %s, want %s", i, c.Name(), want[i])
		}
	}
	help := mustRun(t, reg, "1", "help", "")
	if !strings.Contains(help, "/move &lt;from&gt; &lt;to&gt;") {
		t.Errorf("help output missing escaped usage:\n%s", help)
	}
}

func TestEditingConversation(t *testing.T) {
	reg := newTestRegistry(t)

	mustRun(t, reg, "1", "new", "Login Flow")
	mustRun(t, reg, "1", "add", "navigate https://example.com/login")
	mustRun(t, reg, "1", "add", "type hello  world")
	reply := mustRun(t, reg, "1", "add", "click #submit")
	if !strings.Contains(reply, "(unsaved)") || !strings.Contains(reply, "3. CLICK_BY_SELECTOR <code>#submit</code>") {
		t.Fatalf("unexpected reply:\n%s", reply)
	}
	if !strings.Contains(reply, "<code>hello  world</code>") {
		t.Errorf("typed text should keep its spacing:\n%s", reply)
	}

	reply = mustRun(t, reg, "1", "move", "3 1")
	if !strings.HasPrefix(strings.Split(reply, "\n")[1], "1. CLICK_BY_SELECTOR") {
		t.Errorf("move did not reorder:\n%s", reply)
	}
	mustRun(t, reg, "1", "rm", "2")

	_, err := run(t, reg, "1", "rm", "9")
	if !errors.Is(err, session.ErrPositionOutOfRange) || !UserFacing(err) {
		t.Fatalf("/rm 9 = %v", err)
	}

	reply = mustRun(t, reg, "1", "save", "")
	if reply != "Saved <b>Login Flow</b> with 2 steps." {
		t.Errorf("save reply = %q", reply)
	}
	reply = mustRun(t, reg, "1", "recipes", "")
	if !strings.Contains(reply, "1. Login Flow - 2 steps (editing)") {
		t.Errorf("recipes reply:\n%s", reply)
	}

	// Another chat has its own workspace.
	reply = mustRun(t, reg, "2", "steps", "")
	if !strings.HasPrefix(reply, "No recipe is open") {
		t.Errorf("chat 2 sees chat 1's recipe: %q", reply)
	}
	reply = mustRun(t, reg, "2", "edit", "login flow")
	if !strings.Contains(reply, "2. TYPE_TEXT") {
		t.Errorf("edit reply:\n%s", reply)
	}
}

func TestUserContentIsSanitized(t *testing.T) {
	reg := newTestRegistry(t)
	mustRun(t, reg, "1", "new", "<script>alert(1)</script>Evil")
	reply := mustRun(t, reg, "1", "add", "click <b>x</b>")
	if strings.Contains(reply, "<script>") || strings.Contains(reply, "<b>x</b>") {
		t.Errorf("reply contains raw markup:\n%s", reply)
	}
}

func TestBadArguments(t *testing.T) {
	reg := newTestRegistry(t)
	mustRun(t, reg, "1", "new", "R")

	tests := []struct {
		name, args string
	}{
		{"add", ""},
		{"add", "hover #x"},
		{"rm", "two"},
		{"move", "1"},
		{"new", "   "},
		{"edit", ""},
	}
	for _, tt := range tests {
		_, err := run(t, reg, "1", tt.name, tt.args)
		var ue *UsageError
		if !errors.As(err, &ue) {
			t.Errorf("/%s %q: expected a usage error, got %v", tt.name, tt.args, err)
		}
	}
}

func TestDispatchCommands(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := run(t, reg, "1", "play", "")
	if !dispatch.IsPrecondition(err) {
		t.Fatalf("/play without project = %v", err)
	}
	if got := ReplyForError(err); got != "no project selected" {
		t.Errorf("ReplyForError = %q", got)
	}

	mustRun(t, reg, "1", "newproject", "Shop https://shop.example.com")
	if reply := mustRun(t, reg, "1", "project", ""); reply != "Current project: <b>Shop</b>" {
		t.Errorf("project reply = %q", reply)
	}
	mustRun(t, reg, "1", "new", "Search")
	mustRun(t, reg, "1", "add", "sleep 1s")

	reply := mustRun(t, reg, "1", "play", "")
	if !strings.HasPrefix(reply, "Queued automation job") || !strings.Contains(reply, "Unsaved edits are not included.") {
		t.Errorf("play reply = %q", reply)
	}
	reply = mustRun(t, reg, "1", "record", "")
	if !strings.HasPrefix(reply, "Queued recording job") {
		t.Errorf("record reply = %q", reply)
	}
}

func TestReplyForInfrastructureError(t *testing.T) {
	err := errors.New("disk <full> & busy")
	if UserFacing(err) {
		t.Fatal("plain errors are not the operator's to fix")
	}
	if got := ReplyForError(err); got != "failed: disk &lt;full&gt; &amp; busy" {
		t.Errorf("ReplyForError = %q", got)
	}
}

func TestWhoAmI(t *testing.T) {
	reg := newTestRegistry(t)
	reply := mustRun(t, reg, "1", "whoami", "")
	if reply != "Signed in as <b>Operator</b> (<code>op-1</code>)." {
		t.Errorf("whoami = %q", reply)
	}
}
