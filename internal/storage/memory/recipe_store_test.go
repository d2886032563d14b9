package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/recipe-box/internal/recipe"
)

type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func newTestStore() *RecipeStore {
	return NewRecipeStore(&stepClock{now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), step: time.Second})
}

func TestRecipeStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()
	src := "https://example.com/soup"

	created, err := store.Create(ctx, recipe.NewRecipe{
		UserID:      DefaultUserID,
		Title:       "Soup",
		SourceURL:   &src,
		Ingredients: []string{"salt", "water"},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), created.ID)
	require.Equal(t, created.CreatedAt, created.UpdatedAt)

	got, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"salt", "water"}, got.Ingredients)

	got.Ingredients[0] = "modified"
	again, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "salt", again.Ingredients[0], "Get must return a copy")

	updated, err := store.UpdateNotes(ctx, created.ID, "more salt")
	require.NoError(t, err)
	require.Equal(t, "more salt", updated.Notes)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	require.Equal(t, created.CreatedAt, updated.CreatedAt)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	require.NoError(t, store.Delete(ctx, created.ID))
	_, err = store.Get(ctx, created.ID)
	require.ErrorIs(t, err, recipe.ErrNotFound)
	require.NoError(t, store.Ping(ctx))
}

func TestRecipeStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()
	for _, title := range []string{"A", "B", "C"} {
		_, err := store.Create(ctx, recipe.NewRecipe{UserID: DefaultUserID, Title: title})
		require.NoError(t, err)
	}
	store.AddUser(recipe.User{ID: 2, Username: "other", Email: "other@example.com"})
	_, err := store.Create(ctx, recipe.NewRecipe{UserID: 2, Title: "Other"})
	require.NoError(t, err)

	list, err := store.ListByUser(ctx, DefaultUserID)
	require.NoError(t, err)
	titles := make([]string, 0, len(list))
	for _, r := range list {
		titles = append(titles, r.Title)
	}
	require.Equal(t, []string{"C", "B", "A"}, titles)

	empty, err := store.ListByUser(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, empty)
	require.Empty(t, empty)
}

func TestRecipeStoreRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()

	_, err := store.Create(ctx, recipe.NewRecipe{UserID: DefaultUserID})
	var vErr *recipe.ValidationError
	require.ErrorAs(t, err, &vErr)

	_, err = store.Create(ctx, recipe.NewRecipe{UserID: 99, Title: "Soup"})
	require.ErrorIs(t, err, recipe.ErrUnknownUser)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRecipeStoreUnknownIDs(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()
	_, err := store.Create(ctx, recipe.NewRecipe{UserID: DefaultUserID, Title: "Keep"})
	require.NoError(t, err)

	_, err = store.UpdateNotes(ctx, 404, "x")
	require.ErrorIs(t, err, recipe.ErrNotFound)
	require.ErrorIs(t, store.Delete(ctx, 404), recipe.ErrNotFound)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestRecipeStoreDeleteUserCascades(t *testing.T) {
	t.Parallel()

	store := newTestStore()
	ctx := context.Background()
	store.AddUser(recipe.User{ID: 2, Username: "cook", Email: "cook@example.com"})
	_, err := store.Create(ctx, recipe.NewRecipe{UserID: 2, Title: "Pie"})
	require.NoError(t, err)
	_, err = store.Create(ctx, recipe.NewRecipe{UserID: DefaultUserID, Title: "Soup"})
	require.NoError(t, err)

	store.DeleteUser(2)

	list, err := store.ListByUser(ctx, 2)
	require.NoError(t, err)
	require.Empty(t, list)
	n, err := store.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = store.Create(ctx, recipe.NewRecipe{UserID: 2, Title: "Pie"})
	require.ErrorIs(t, err, recipe.ErrUnknownUser)
}
