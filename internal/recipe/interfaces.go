package recipe

import (
	"context"
	"time"
)

// Fetcher retrieves the raw HTML for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// Extractor turns raw HTML into a normalized record. Implementations never fail;
// they fall back to a default record instead.
type Extractor interface {
	Extract(pageURL string, html []byte) Parsed
}

// Store persists recipes scoped by owning user.
type Store interface {
	// ListByUser returns the user's recipes, newest first.
	ListByUser(ctx context.Context, userID int64) ([]Recipe, error)
	// Get loads one recipe or returns ErrNotFound.
	Get(ctx context.Context, id int64) (Recipe, error)
	// Create validates and inserts a recipe in a single transaction.
	Create(ctx context.Context, in NewRecipe) (Recipe, error)
	// UpdateNotes replaces the notes and refreshes updated_at.
	UpdateNotes(ctx context.Context, id int64, notes string) (Recipe, error)
	// Delete removes a recipe or returns ErrNotFound.
	Delete(ctx context.Context, id int64) error
	// Count returns the total number of stored recipes.
	Count(ctx context.Context) (int64, error)
	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
