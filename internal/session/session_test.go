package session

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/rahul/stepdeck/internal/dispatch"
	"github.com/rahul/stepdeck/internal/observability"
	"github.com/rahul/stepdeck/internal/recipe"
	"github.com/rahul/stepdeck/internal/store"
)

type fixture struct {
	store    *store.Store
	auth     *StaticAuth
	session  *Session
	projects *store.ProjectRepo
	ws       *Workspace
}

func newFixture(t *testing.T, user User) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "stepdeck.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := observability.NewWriterLogger(io.Discard)
	editor := recipe.NewEditor()
	auth := NewStaticAuth(user)
	recipes := store.NewRecipeRepo(st, editor, logger)
	projects := store.NewProjectRepo(st)
	s := New(auth, recipes, projects, 10*time.Millisecond)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Session.Open: %v", err)
	}
	t.Cleanup(s.Close)

	d := dispatch.NewDispatcher(store.NewJobQueue(st), logger)
	return &fixture{store: st, auth: auth, session: s, projects: projects, ws: NewWorkspace(s, editor, d)}
}

func stepValues(r recipe.Recipe) []string {
	out := make([]string, 0, r.Len())
	for _, s := range r.Steps {
		out = append(out, string(s.Kind())+":"+s.Value())
	}
	return out
}

func TestStaticAuthNotifiesUntilUnsubscribed(t *testing.T) {
	a := NewStaticAuth(User{})
	if _, ok := a.CurrentUser(); ok {
		t.Fatal("empty user should not be signed in")
	}
	var calls []string
	unsubscribe := a.OnChange(func(u User, signedIn bool) {
		if signedIn {
			calls = append(calls, u.ID)
		} else {
			calls = append(calls, "-")
		}
	})
	a.SignIn(User{ID: "u1"})
	a.SignOut()
	unsubscribe()
	unsubscribe()
	a.SignIn(User{ID: "u2"})

	if diff := cmp.Diff([]string{"u1", "-"}, calls); diff != "" {
		t.Errorf("notifications mismatch (-want +got):\n%s", diff)
	}
	if u, ok := a.CurrentUser(); !ok || u.ID != "u2" {
		t.Errorf("CurrentUser = %v, %t", u, ok)
	}
}

func TestSessionTracksUserAndLists(t *testing.T) {
	f := newFixture(t, User{ID: "op-1"})
	ctx := context.Background()

	if got := f.session.CurrentUserID(); got != "op-1" {
		t.Fatalf("CurrentUserID = %q", got)
	}
	f.auth.SignOut()
	if got := f.session.CurrentUserID(); got != "" {
		t.Fatalf("CurrentUserID after sign out = %q", got)
	}

	if _, err := f.projects.Create(ctx, "Shop", "https://shop.example.com"); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(2 * time.Second)
	for len(f.session.Projects()) == 0 {
		select {
		case <-deadline:
			t.Fatal("project list never updated")
		case <-time.After(5 * time.Millisecond):
		}
	}
	p, ok := f.session.FindProject("shop")
	if !ok || p.TargetURL != "https://shop.example.com" {
		t.Fatalf("FindProject = %v, %t", p, ok)
	}
	if _, ok := f.session.FindProject("1"); !ok {
		t.Error("lookup by list number failed")
	}
	if _, ok := f.session.FindProject("2"); ok {
		t.Error("lookup past the end should fail")
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	f := newFixture(t, User{ID: "op-1"})
	f.session.Close()
	f.session.Close()
	f.auth.SignOut()
	if got := f.session.CurrentUserID(); got != "op-1" {
		t.Errorf("closed session should stop tracking auth, got %q", got)
	}
}

func TestSessionCloseStopsPollers(t *testing.T) {
	ignore := goleak.IgnoreCurrent()

	st, err := store.Open(filepath.Join(t.TempDir(), "stepdeck.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	editor := recipe.NewEditor()
	logger := observability.NewWriterLogger(io.Discard)
	s := New(NewStaticAuth(User{ID: "op-1"}), store.NewRecipeRepo(st, editor, logger), store.NewProjectRepo(st), 5*time.Millisecond)
	if err := s.Open(context.Background()); err != nil {
		t.Fatalf("Session.Open: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	s.Close()
	if err := st.Close(); err != nil {
		t.Fatalf("store Close: %v", err)
	}
	goleak.VerifyNone(t, ignore)
}

func TestWorkspaceEditAndSave(t *testing.T) {
	f := newFixture(t, User{ID: "op-1"})
	ctx := context.Background()

	created, err := f.ws.NewRecipe(ctx, "Login Flow")
	if err != nil {
		t.Fatalf("NewRecipe: %v", err)
	}
	if created.OwnerID != "op-1" || created.Len() != 0 {
		t.Fatalf("unexpected recipe: %+v", created)
	}

	f.ws.Append(recipe.KindNavigate, "https://example.com/login")
	f.ws.Append(recipe.KindTypeText, "#user=alice")
	f.ws.Append(recipe.KindClickBySelector, "#submit")
	if _, err := f.ws.Move(2, 1); err != nil {
		t.Fatalf("Move: %v", err)
	}
	if _, err := f.ws.RemoveAt(5); !errors.Is(err, ErrPositionOutOfRange) {
		t.Fatalf("RemoveAt out of range = %v", err)
	}

	_, dirty, ok := f.ws.Open()
	if !ok || !dirty {
		t.Fatalf("Open = dirty %t ok %t", dirty, ok)
	}
	saved, err := f.ws.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, dirty, _ := f.ws.Open(); dirty {
		t.Error("Save should clear the dirty flag")
	}

	stored, err := f.session.RecipeRepo.Get(ctx, saved.ID)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"NAVIGATE:https://example.com/login", "CLICK_BY_SELECTOR:#submit", "TYPE_TEXT:#user=alice"}
	if diff := cmp.Diff(want, stepValues(stored)); diff != "" {
		t.Errorf("stored steps mismatch (-want +got):\n%s", diff)
	}
	if err := recipe.CheckOrder(stored.Steps); err != nil {
		t.Error(err)
	}
}

func TestWorkspaceDiscardRestoresStoredSteps(t *testing.T) {
	f := newFixture(t, User{ID: "op-1"})
	ctx := context.Background()

	if _, err := f.ws.NewRecipe(ctx, "Checkout"); err != nil {
		t.Fatal(err)
	}
	f.ws.Append(recipe.KindNavigate, "https://example.com")
	if _, err := f.ws.Save(ctx); err != nil {
		t.Fatal(err)
	}
	f.ws.Append(recipe.KindSleep, "2")
	if _, err := f.ws.NewRecipe(ctx, "Other"); !errors.Is(err, ErrUnsavedChanges) {
		t.Fatalf("NewRecipe with unsaved edits = %v", err)
	}

	got, err := f.ws.Discard(ctx)
	if err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if diff := cmp.Diff([]string{"NAVIGATE:https://example.com"}, stepValues(got)); diff != "" {
		t.Errorf("steps after discard (-want +got):\n%s", diff)
	}
}

func TestWorkspaceFailedSaveKeepsLocalEdits(t *testing.T) {
	f := newFixture(t, User{ID: "op-1"})
	ctx := context.Background()

	if _, err := f.ws.NewRecipe(ctx, "Fragile"); err != nil {
		t.Fatal(err)
	}
	f.ws.Append(recipe.KindNavigate, "https://example.com")
	before, _, _ := f.ws.Open()

	f.session.Close()
	f.store.Close()
	if _, err := f.ws.Save(ctx); err == nil {
		t.Fatal("Save against a closed store should fail")
	}
	after, dirty, ok := f.ws.Open()
	if !ok || !dirty {
		t.Fatalf("local state lost: ok %t dirty %t", ok, dirty)
	}
	if diff := cmp.Diff(stepValues(before), stepValues(after)); diff != "" {
		t.Errorf("local steps changed (-want +got):\n%s", diff)
	}
}

func TestWorkspaceRequiresSignIn(t *testing.T) {
	f := newFixture(t, User{})
	ctx := context.Background()

	if _, err := f.ws.NewRecipe(ctx, "x"); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("NewRecipe = %v", err)
	}
	if _, err := f.ws.Save(ctx); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("Save = %v", err)
	}
	if _, err := f.ws.Record(ctx); !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("Record = %v", err)
	}
	if _, err := f.ws.Append(recipe.KindSleep, "1"); !errors.Is(err, ErrNothingToSave) {
		t.Errorf("Append with nothing open = %v", err)
	}
}

func TestWorkspaceDispatch(t *testing.T) {
	f := newFixture(t, User{ID: "op-1"})
	ctx := context.Background()

	if _, err := f.ws.Play(ctx); !dispatch.IsPrecondition(err) {
		t.Fatalf("Play without project = %v", err)
	}
	if _, err := f.projects.Create(ctx, "Shop", ""); err != nil {
		t.Fatal(err)
	}
	if err := f.session.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	project, err := f.ws.SelectProject("Shop")
	if err != nil {
		t.Fatalf("SelectProject: %v", err)
	}
	if _, err := f.ws.Record(ctx); !errors.Is(err, dispatch.ErrNoRecipe) {
		t.Fatalf("Record without recipe = %v", err)
	}

	rec, err := f.ws.NewRecipe(ctx, "Search")
	if err != nil {
		t.Fatal(err)
	}
	job, err := f.ws.Record(ctx)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if job.Type != dispatch.TypeRecording || job.TargetRecipeID != rec.ID || job.ProjectID != project.ID {
		t.Errorf("unexpected recording job: %+v", job)
	}
	job, err = f.ws.Play(ctx)
	if err != nil {
		t.Fatalf("Play: %v", err)
	}
	if job.Type != dispatch.TypeAutomation || job.RecipeID != rec.ID {
		t.Errorf("unexpected playback job: %+v", job)
	}
}

func TestWorkspaceDeleteClosesOpenRecipe(t *testing.T) {
	f := newFixture(t, User{ID: "op-1"})
	ctx := context.Background()

	rec, err := f.ws.NewRecipe(ctx, "Temp")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.ws.DeleteRecipe(ctx, rec.ID); err != nil {
		t.Fatalf("DeleteRecipe: %v", err)
	}
	if _, _, ok := f.ws.Open(); ok {
		t.Error("deleted recipe is still open")
	}
	if _, err := f.session.RecipeRepo.Get(ctx, rec.ID); !store.IsNotFound(err) {
		t.Errorf("Get after delete = %v", err)
	}
	if _, ok := f.session.FindRecipe("Temp"); ok {
		t.Error("deleted recipe still listed")
	}
}
