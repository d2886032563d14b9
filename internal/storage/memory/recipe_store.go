// Package memory provides in-memory persistence for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/JakeFAU/recipe-box/internal/recipe"
)

// DefaultUserID is the user every new store is seeded with.
const DefaultUserID int64 = 1

// RecipeStore implements recipe.Store with maps guarded by a RWMutex. It
// enforces the same ownership rules as the relational schema.
type RecipeStore struct {
	mu      sync.RWMutex
	clock   recipe.Clock
	users   map[int64]recipe.User
	recipes map[int64]recipe.Recipe
	nextID  int64
}

// NewRecipeStore constructs a RecipeStore seeded with the default user.
func NewRecipeStore(clock recipe.Clock) *RecipeStore {
	s := &RecipeStore{
		clock:   clock,
		users:   make(map[int64]recipe.User),
		recipes: make(map[int64]recipe.Recipe),
	}
	s.users[DefaultUserID] = recipe.User{
		ID:        DefaultUserID,
		Username:  "default",
		Email:     "default@localhost",
		CreatedAt: clock.Now(),
	}
	return s
}

// AddUser registers a user so recipes can be attributed to it. Users are
// managed outside the service; AddUser and DeleteUser stand in for direct
// writes to the users table, including its ON DELETE CASCADE.
func (s *RecipeStore) AddUser(u recipe.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.clock.Now()
	}
	s.users[u.ID] = u
}

// DeleteUser removes a user and every recipe it owns.
func (s *RecipeStore) DeleteUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	for rid, r := range s.recipes {
		if r.UserID == id {
			delete(s.recipes, rid)
		}
	}
}

// ListByUser returns the user's recipes, newest first.
func (s *RecipeStore) ListByUser(_ context.Context, userID int64) ([]recipe.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []recipe.Recipe{}
	for _, r := range s.recipes {
		if r.UserID == userID {
			out = append(out, clone(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// Get loads a recipe by id.
func (s *RecipeStore) Get(_ context.Context, id int64) (recipe.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.recipes[id]
	if !ok {
		return recipe.Recipe{}, recipe.ErrNotFound
	}
	return clone(r), nil
}

// Create validates and stores a new recipe.
func (s *RecipeStore) Create(_ context.Context, in recipe.NewRecipe) (recipe.Recipe, error) {
	if err := in.Validate(); err != nil {
		return recipe.Recipe{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[in.UserID]; !ok {
		return recipe.Recipe{}, recipe.ErrUnknownUser
	}
	s.nextID++
	now := s.clock.Now()
	r := recipe.Recipe{
		ID:           s.nextID,
		UserID:       in.UserID,
		Title:        in.Title,
		SourceURL:    copyString(in.SourceURL),
		Ingredients:  append([]string{}, in.Ingredients...),
		Instructions: copyString(in.Instructions),
		PrepTime:     copyString(in.PrepTime),
		Servings:     copyString(in.Servings),
		ImageURL:     copyString(in.ImageURL),
		Host:         copyString(in.Host),
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.recipes[r.ID] = r
	return clone(r), nil
}

// UpdateNotes replaces a recipe's notes and refreshes updated_at.
func (s *RecipeStore) UpdateNotes(_ context.Context, id int64, notes string) (recipe.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipes[id]
	if !ok {
		return recipe.Recipe{}, recipe.ErrNotFound
	}
	r.Notes = notes
	r.UpdatedAt = s.clock.Now()
	s.recipes[id] = r
	return clone(r), nil
}

// Delete removes a recipe.
func (s *RecipeStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipes[id]; !ok {
		return recipe.ErrNotFound
	}
	delete(s.recipes, id)
	return nil
}

// Count returns the number of stored recipes.
func (s *RecipeStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.recipes)), nil
}

// Ping always succeeds.
func (s *RecipeStore) Ping(context.Context) error {
	return nil
}

func clone(r recipe.Recipe) recipe.Recipe {
	r.Ingredients = append([]string{}, r.Ingredients...)
	r.SourceURL = copyString(r.SourceURL)
	r.Instructions = copyString(r.Instructions)
	r.PrepTime = copyString(r.PrepTime)
	r.Servings = copyString(r.Servings)
	r.ImageURL = copyString(r.ImageURL)
	r.Host = copyString(r.Host)
	return r
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
