package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rahul/stepdeck/internal/observability"
	"github.com/rahul/stepdeck/internal/recipe"
)

type recipeDoc struct {
	Name    string        `json:"name"`
	OwnerID string        `json:"ownerId,omitempty"`
	Steps   []recipe.Step `json:"steps"`
}

// RecipeRepo persists recipes as one document each.
type RecipeRepo struct {
	Store  *Store
	Editor *recipe.Editor
	Logger *observability.Logger
}

func NewRecipeRepo(s *Store, editor *recipe.Editor, logger *observability.Logger) *RecipeRepo {
	return &RecipeRepo{Store: s, Editor: editor, Logger: logger}
}

// Create stores an empty recipe and returns it with its id assigned.
func (r *RecipeRepo) Create(ctx context.Context, name, ownerID string) (recipe.Recipe, error) {
	rec, err := recipe.NewRecipe(name)
	if err != nil {
		return recipe.Recipe{}, err
	}
	doc, err := r.Store.CreateDocument(ctx, CollectionRecipes, Fields{
		"name":      rec.Name,
		"ownerId":   ownerID,
		"steps":     []recipe.Step{},
		"createdAt": ServerTimestamp(),
		"updatedAt": ServerTimestamp(),
	})
	if err != nil {
		return recipe.Recipe{}, err
	}
	created, err := r.decode(doc)
	if err != nil {
		return recipe.Recipe{}, err
	}
	r.Logger.LogRecipe(observability.EventTypeRecipeCreated, created.ID, created.Name, 0)
	return created, nil
}

// Save overwrites the stored steps and refreshes updatedAt. The name is
// left alone.
func (r *RecipeRepo) Save(ctx context.Context, rec recipe.Recipe) (recipe.Recipe, error) {
	if rec.ID == "" {
		return recipe.Recipe{}, errors.New("recipe has not been created")
	}
	steps := rec.Steps
	if steps == nil {
		steps = []recipe.Step{}
	}
	at, err := r.Store.UpdateDocument(ctx, CollectionRecipes, rec.ID, Fields{
		"steps":     steps,
		"updatedAt": ServerTimestamp(),
	})
	if err != nil {
		return recipe.Recipe{}, err
	}
	saved := rec.Clone()
	saved.UpdatedAt = at
	r.Logger.LogRecipe(observability.EventTypeRecipeSaved, saved.ID, saved.Name, saved.Len())
	return saved, nil
}

// Delete removes a recipe immediately and for good.
func (r *RecipeRepo) Delete(ctx context.Context, id string) error {
	if err := r.Store.DeleteByID(ctx, CollectionRecipes, id); err != nil {
		return err
	}
	r.Logger.LogRecipe(observability.EventTypeRecipeDeleted, id, "", 0)
	return nil
}

func (r *RecipeRepo) Get(ctx context.Context, id string) (recipe.Recipe, error) {
	doc, err := r.Store.Get(ctx, CollectionRecipes, id)
	if err != nil {
		return recipe.Recipe{}, err
	}
	return r.decode(doc)
}

// List returns all recipes, oldest first.
func (r *RecipeRepo) List(ctx context.Context) ([]recipe.Recipe, error) {
	docs, err := r.Store.GetAll(ctx, CollectionRecipes, OrderBy{Field: "createdAt"})
	if err != nil {
		return nil, err
	}
	return r.decodeAll(docs)
}

// Subscribe streams the recipe list; decode snapshots with FromSnapshot.
func (r *RecipeRepo) Subscribe(ctx context.Context, interval time.Duration) *Subscription {
	return r.Store.Subscribe(ctx, CollectionRecipes, interval, OrderBy{Field: "createdAt"})
}

func (r *RecipeRepo) FromSnapshot(snap Snapshot) ([]recipe.Recipe, error) {
	if snap.Err != nil {
		return nil, snap.Err
	}
	return r.decodeAll(snap.Docs)
}

func (r *RecipeRepo) decodeAll(docs []Document) ([]recipe.Recipe, error) {
	out := make([]recipe.Recipe, 0, len(docs))
	for _, d := range docs {
		rec, err := r.decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *RecipeRepo) decode(d Document) (recipe.Recipe, error) {
	var doc recipeDoc
	if err := json.Unmarshal(d.Data, &doc); err != nil {
		return recipe.Recipe{}, fmt.Errorf("decode recipe %s: %w", d.ID, err)
	}
	if err := recipe.CheckOrder(doc.Steps); err != nil {
		r.Logger.LogRecipeRepaired(d.ID, err)
	}
	rec := recipe.Recipe{
		ID:        d.ID,
		Name:      doc.Name,
		OwnerID:   doc.OwnerID,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	return r.Editor.ReplaceSteps(rec, doc.Steps), nil
}
