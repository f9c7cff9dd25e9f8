package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/rahul/stepdeck/internal/dispatch"
	"github.com/rahul/stepdeck/internal/recipe"
	"github.com/rahul/stepdeck/internal/store"
)

var (
	ErrNotSignedIn        = errors.New("not signed in")
	ErrNothingToSave      = errors.New("no recipe is open")
	ErrUnsavedChanges     = errors.New("open recipe has unsaved changes; save or discard first")
	ErrUnknownRecipe      = errors.New("no such recipe")
	ErrUnknownProject     = errors.New("no such project")
	ErrPositionOutOfRange = errors.New("step position out of range")
)

// Workspace is one operator's editing state: a selected project and at most
// one open recipe. Edits stay local until Save.
type Workspace struct {
	Session    *Session
	Editor     *recipe.Editor
	Dispatcher *dispatch.Dispatcher

	mu      sync.Mutex
	project *store.Project
	open    *recipe.Recipe
	dirty   bool
}

func NewWorkspace(s *Session, editor *recipe.Editor, d *dispatch.Dispatcher) *Workspace {
	return &Workspace{Session: s, Editor: editor, Dispatcher: d}
}

func (w *Workspace) SelectProject(ref string) (store.Project, error) {
	p, ok := w.Session.FindProject(ref)
	if !ok {
		return store.Project{}, fmt.Errorf("%w: %q", ErrUnknownProject, ref)
	}
	w.mu.Lock()
	w.project = &p
	w.mu.Unlock()
	return p, nil
}

func (w *Workspace) Project() (store.Project, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.project == nil {
		return store.Project{}, false
	}
	return *w.project, true
}

// Open returns a copy of the open recipe and whether it has unsaved edits.
func (w *Workspace) Open() (recipe.Recipe, bool, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.open == nil {
		return recipe.Recipe{}, false, false
	}
	return w.open.Clone(), w.dirty, true
}

// NewRecipe creates an empty recipe owned by the current user and opens it.
func (w *Workspace) NewRecipe(ctx context.Context, name string) (recipe.Recipe, error) {
	uid := w.Session.CurrentUserID()
	if uid == "" {
		return recipe.Recipe{}, ErrNotSignedIn
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirty {
		return recipe.Recipe{}, ErrUnsavedChanges
	}
	created, err := w.Session.RecipeRepo.Create(ctx, name, uid)
	if err != nil {
		return recipe.Recipe{}, err
	}
	w.open = &created
	w.dirty = false
	w.refresh(ctx)
	return created.Clone(), nil
}

// Edit opens a stored recipe, reloading it so the steps are current.
func (w *Workspace) Edit(ctx context.Context, ref string) (recipe.Recipe, error) {
	found, ok := w.Session.FindRecipe(ref)
	if !ok {
		return recipe.Recipe{}, fmt.Errorf("%w: %q", ErrUnknownRecipe, ref)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.dirty && w.open != nil && w.open.ID != found.ID {
		return recipe.Recipe{}, ErrUnsavedChanges
	}
	loaded, err := w.Session.RecipeRepo.Get(ctx, found.ID)
	if err != nil {
		return recipe.Recipe{}, err
	}
	w.open = &loaded
	w.dirty = false
	return loaded.Clone(), nil
}

// Append adds a step to the open recipe.
func (w *Workspace) Append(kind recipe.Kind, value string) (recipe.Recipe, error) {
	action, err := recipe.NewAction(kind, value)
	if err != nil {
		return recipe.Recipe{}, err
	}
	return w.apply(func(r recipe.Recipe) (recipe.Recipe, error) {
		return w.Editor.AppendStep(r, action), nil
	})
}

// RemoveAt drops the step at the 0-based position pos.
func (w *Workspace) RemoveAt(pos int) (recipe.Recipe, error) {
	return w.apply(func(r recipe.Recipe) (recipe.Recipe, error) {
		if err := checkPos(r, pos); err != nil {
			return recipe.Recipe{}, err
		}
		return w.Editor.RemoveStepAt(r, pos), nil
	})
}

// Move relocates the step at from to index to, both 0-based.
func (w *Workspace) Move(from, to int) (recipe.Recipe, error) {
	return w.apply(func(r recipe.Recipe) (recipe.Recipe, error) {
		if err := checkPos(r, from); err != nil {
			return recipe.Recipe{}, err
		}
		if err := checkPos(r, to); err != nil {
			return recipe.Recipe{}, err
		}
		return w.Editor.MoveStep(r, from, to), nil
	})
}

func (w *Workspace) apply(edit func(recipe.Recipe) (recipe.Recipe, error)) (recipe.Recipe, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.open == nil {
		return recipe.Recipe{}, ErrNothingToSave
	}
	next, err := edit(*w.open)
	if err != nil {
		return recipe.Recipe{}, err
	}
	w.open = &next
	w.dirty = true
	return next.Clone(), nil
}

func checkPos(r recipe.Recipe, pos int) error {
	if pos < 0 || pos >= r.Len() {
		return fmt.Errorf("%w: %d (recipe has %d steps)", ErrPositionOutOfRange, pos+1, r.Len())
	}
	return nil
}

// Discard drops local edits by reloading the open recipe from the store.
func (w *Workspace) Discard(ctx context.Context) (recipe.Recipe, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.open == nil {
		return recipe.Recipe{}, ErrNothingToSave
	}
	loaded, err := w.Session.RecipeRepo.Get(ctx, w.open.ID)
	if err != nil {
		return recipe.Recipe{}, err
	}
	w.open = &loaded
	w.dirty = false
	return loaded.Clone(), nil
}

// Save writes the open recipe's steps. On failure the local copy and its
// dirty flag are kept so the operator can retry.
func (w *Workspace) Save(ctx context.Context) (recipe.Recipe, error) {
	if w.Session.CurrentUserID() == "" {
		return recipe.Recipe{}, ErrNotSignedIn
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.open == nil {
		return recipe.Recipe{}, ErrNothingToSave
	}
	saved, err := w.Session.RecipeRepo.Save(ctx, *w.open)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("save %q: %w", w.open.Name, err)
	}
	w.open = &saved
	w.dirty = false
	w.refresh(ctx)
	return saved.Clone(), nil
}

// DeleteRecipe removes a stored recipe. If it is the open one, it is closed
// and any local edits are lost.
func (w *Workspace) DeleteRecipe(ctx context.Context, ref string) (recipe.Recipe, error) {
	if w.Session.CurrentUserID() == "" {
		return recipe.Recipe{}, ErrNotSignedIn
	}
	found, ok := w.Session.FindRecipe(ref)
	if !ok {
		return recipe.Recipe{}, fmt.Errorf("%w: %q", ErrUnknownRecipe, ref)
	}
	if err := w.Session.RecipeRepo.Delete(ctx, found.ID); err != nil {
		return recipe.Recipe{}, err
	}
	w.mu.Lock()
	if w.open != nil && w.open.ID == found.ID {
		w.open = nil
		w.dirty = false
	}
	w.refresh(ctx)
	w.mu.Unlock()
	return found, nil
}

// Record queues a recording job that will overwrite the open recipe.
func (w *Workspace) Record(ctx context.Context) (dispatch.Job, error) {
	if w.Session.CurrentUserID() == "" {
		return dispatch.Job{}, ErrNotSignedIn
	}
	projectID, target := w.targets()
	targetID := ""
	if target != nil {
		targetID = target.ID
	}
	return w.Dispatcher.RequestRecording(ctx, projectID, targetID)
}

// Play queues a playback of the open recipe. The agent reads the stored
// steps, so unsaved edits are not played.
func (w *Workspace) Play(ctx context.Context) (dispatch.Job, error) {
	if w.Session.CurrentUserID() == "" {
		return dispatch.Job{}, ErrNotSignedIn
	}
	projectID, target := w.targets()
	return w.Dispatcher.RequestPlayback(ctx, projectID, target)
}

func (w *Workspace) targets() (string, *recipe.Recipe) {
	w.mu.Lock()
	defer w.mu.Unlock()
	projectID := ""
	if w.project != nil {
		projectID = w.project.ID
	}
	var target *recipe.Recipe
	if w.open != nil {
		r := w.open.Clone()
		target = &r
	}
	return projectID, target
}

// refresh pulls the lists right away so the next lookup sees our own write.
// A failure only delays that until the next poll.
func (w *Workspace) refresh(ctx context.Context) {
	if err := w.Session.Refresh(ctx); err != nil {
		log.Printf("Error refreshing lists: %v", err)
	}
}

// Workspaces hands out one Workspace per chat.
type Workspaces struct {
	Session    *Session
	Editor     *recipe.Editor
	Dispatcher *dispatch.Dispatcher

	mu    sync.Mutex
	byKey map[string]*Workspace
}

func NewWorkspaces(s *Session, editor *recipe.Editor, d *dispatch.Dispatcher) *Workspaces {
	return &Workspaces{Session: s, Editor: editor, Dispatcher: d, byKey: make(map[string]*Workspace)}
}

func (ws *Workspaces) For(chatID string) *Workspace {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	w, ok := ws.byKey[chatID]
	if !ok {
		w = NewWorkspace(ws.Session, ws.Editor, ws.Dispatcher)
		ws.byKey[chatID] = w
	}
	return w
}
