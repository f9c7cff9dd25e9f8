package session

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rahul/stepdeck/internal/recipe"
	"github.com/rahul/stepdeck/internal/store"
)

// Session owns the operator identity and the live recipe and project lists.
// Everything it subscribes to in Open is released by Close.
type Session struct {
	Auth        Auth
	RecipeRepo  *store.RecipeRepo
	ProjectRepo *store.ProjectRepo
	Interval    time.Duration

	mu       sync.RWMutex
	user     User
	signedIn bool
	recipes  []recipe.Recipe
	projects []store.Project

	stops []func()
	wg    sync.WaitGroup
}

// New reads the current user once. Call Open to follow changes and keep the
// lists live, or Refresh to load them once.
func New(auth Auth, recipes *store.RecipeRepo, projects *store.ProjectRepo, interval time.Duration) *Session {
	s := &Session{Auth: auth, RecipeRepo: recipes, ProjectRepo: projects, Interval: interval}
	s.user, s.signedIn = auth.CurrentUser()
	return s
}

// Open loads both lists once and then keeps them current until Close.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	s.user, s.signedIn = s.Auth.CurrentUser()
	s.mu.Unlock()

	s.stops = append(s.stops, s.Auth.OnChange(func(u User, signedIn bool) {
		s.mu.Lock()
		s.user, s.signedIn = u, signedIn
		s.mu.Unlock()
		log.Printf("Session user changed: %q (signed in: %t)", u.ID, signedIn)
	}))

	if err := s.Refresh(ctx); err != nil {
		s.Close()
		return err
	}

	recipeSub := s.RecipeRepo.Subscribe(ctx, s.Interval)
	projectSub := s.ProjectRepo.Subscribe(ctx, s.Interval)
	s.stops = append(s.stops, recipeSub.Close, projectSub.Close)

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		for snap := range recipeSub.C {
			list, err := s.RecipeRepo.FromSnapshot(snap)
			if err != nil {
				log.Printf("Error reading recipe snapshot: %v", err)
				continue
			}
			s.setRecipes(list)
		}
	}()
	go func() {
		defer s.wg.Done()
		for snap := range projectSub.C {
			list, err := s.ProjectRepo.FromSnapshot(snap)
			if err != nil {
				log.Printf("Error reading project snapshot: %v", err)
				continue
			}
			s.setProjects(list)
		}
	}()
	return nil
}

// Close unsubscribes everything Open set up. It is safe to call more than once.
func (s *Session) Close() {
	for i := len(s.stops) - 1; i >= 0; i-- {
		s.stops[i]()
	}
	s.stops = nil
	s.wg.Wait()
}

// Refresh reloads both lists immediately instead of waiting for the next poll.
func (s *Session) Refresh(ctx context.Context) error {
	recipes, err := s.RecipeRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("load recipes: %w", err)
	}
	projects, err := s.ProjectRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	s.setRecipes(recipes)
	s.setProjects(projects)
	return nil
}

func (s *Session) setRecipes(list []recipe.Recipe) {
	s.mu.Lock()
	s.recipes = list
	s.mu.Unlock()
}

func (s *Session) setProjects(list []store.Project) {
	s.mu.Lock()
	s.projects = list
	s.mu.Unlock()
}

// CurrentUserID returns "" when nobody is signed in.
func (s *Session) CurrentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.signedIn {
		return ""
	}
	return s.user.ID
}

func (s *Session) CurrentUser() (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.signedIn
}

// Recipes returns the latest recipe snapshot.
func (s *Session) Recipes() []recipe.Recipe {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]recipe.Recipe, len(s.recipes))
	copy(out, s.recipes)
	return out
}

// Projects returns the latest project snapshot.
func (s *Session) Projects() []store.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Project, len(s.projects))
	copy(out, s.projects)
	return out
}

// FindRecipe resolves ref as a 1-based list number, an id, or a name.
func (s *Session) FindRecipe(ref string) (recipe.Recipe, bool) {
	list := s.Recipes()
	idx := lookup(len(list), ref, func(i int) (string, string) { return list[i].ID, list[i].Name })
	if idx < 0 {
		return recipe.Recipe{}, false
	}
	return list[idx], true
}

// FindProject resolves ref the same way as FindRecipe.
func (s *Session) FindProject(ref string) (store.Project, bool) {
	list := s.Projects()
	idx := lookup(len(list), ref, func(i int) (string, string) { return list[i].ID, list[i].Name })
	if idx < 0 {
		return store.Project{}, false
	}
	return list[idx], true
}

func lookup(n int, ref string, at func(i int) (id, name string)) int {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return -1
	}
	if num, err := strconv.Atoi(ref); err == nil && num >= 1 && num <= n {
		return num - 1
	}
	for i := 0; i < n; i++ {
		if id, _ := at(i); id == ref {
			return i
		}
	}
	for i := 0; i < n; i++ {
		if _, name := at(i); strings.EqualFold(name, ref) {
			return i
		}
	}
	return -1
}
