// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/recipe-box/internal/recipe"
)

// foreignKeyViolation is the SQLSTATE raised when recipes.user_id has no users row.
const foreignKeyViolation = "23503"

const recipeColumns = `id, user_id, title, source_url, ingredients, instructions,
	prep_time, servings, image_url, host, notes, created_at, updated_at`

// Config controls the Postgres connection pool used for recipe rows.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies it in tests.
type Pool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
	Ping(context.Context) error
	Close()
}

// RecipeStore implements recipe.Store on top of Postgres.
type RecipeStore struct {
	pool  Pool
	clock recipe.Clock
}

// NewRecipeStore connects a pool using cfg.
func NewRecipeStore(ctx context.Context, cfg Config, clock recipe.Clock) (*RecipeStore, error) {
	if cfg.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return NewRecipeStoreWithPool(pool, clock)
}

// NewRecipeStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecipeStoreWithPool(pool Pool, clock recipe.Clock) (*RecipeStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	if clock == nil {
		return nil, errors.New("clock is required")
	}
	return &RecipeStore{pool: pool, clock: clock}, nil
}

// Close releases the underlying pool resources.
func (s *RecipeStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// ListByUser returns the user's recipes, newest first.
func (s *RecipeStore) ListByUser(ctx context.Context, userID int64) ([]recipe.Recipe, error) {
	query := `SELECT ` + recipeColumns + `
		FROM recipes
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	defer rows.Close()

	out := []recipe.Recipe{}
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipe row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recipe rows: %w", err)
	}
	return out, nil
}

// Get loads a single recipe.
func (s *RecipeStore) Get(ctx context.Context, id int64) (recipe.Recipe, error) {
	query := `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1`
	r, err := scanRecipe(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return recipe.Recipe{}, recipe.ErrNotFound
		}
		return recipe.Recipe{}, fmt.Errorf("get recipe %d: %w", id, err)
	}
	return r, nil
}

// Create validates and inserts a recipe.
func (s *RecipeStore) Create(ctx context.Context, in recipe.NewRecipe) (recipe.Recipe, error) {
	if err := in.Validate(); err != nil {
		return recipe.Recipe{}, err
	}
	ingredients := in.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	ingredientsJSON, err := json.Marshal(ingredients)
	if err != nil {
		return recipe.Recipe{}, fmt.Errorf("marshal ingredients: %w", err)
	}
	now := s.clock.Now()
	query := `
INSERT INTO recipes (
	user_id,
	title,
	source_url,
	ingredients,
	instructions,
	prep_time,
	servings,
	image_url,
	host,
	notes,
	created_at,
	updated_at
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12
) RETURNING ` + recipeColumns

	var created recipe.Recipe
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		r, err := scanRecipe(tx.QueryRow(ctx, query,
			in.UserID,
			in.Title,
			in.SourceURL,
			ingredientsJSON,
			in.Instructions,
			in.PrepTime,
			in.Servings,
			in.ImageURL,
			in.Host,
			in.Notes,
			now,
			now,
		))
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
				return recipe.ErrUnknownUser
			}
			return fmt.Errorf("insert recipe: %w", err)
		}
		created = r
		return nil
	})
	if err != nil {
		return recipe.Recipe{}, err
	}
	return created, nil
}

// UpdateNotes replaces the notes of a recipe and refreshes updated_at.
func (s *RecipeStore) UpdateNotes(ctx context.Context, id int64, notes string) (recipe.Recipe, error) {
	query := `UPDATE recipes
		SET notes = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + recipeColumns

	var updated recipe.Recipe
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		r, err := scanRecipe(tx.QueryRow(ctx, query, notes, s.clock.Now(), id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return recipe.ErrNotFound
			}
			return fmt.Errorf("update notes for recipe %d: %w", id, err)
		}
		updated = r
		return nil
	})
	if err != nil {
		return recipe.Recipe{}, err
	}
	return updated, nil
}

// Delete removes a recipe.
func (s *RecipeStore) Delete(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete recipe %d: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return recipe.ErrNotFound
		}
		return nil
	})
}

// Count returns the total number of stored recipes.
func (s *RecipeStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count recipes: %w", err)
	}
	return n, nil
}

// Ping checks connectivity.
func (s *RecipeStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// inTx runs fn in a transaction, rolling back when fn fails.
func (s *RecipeStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func scanRecipe(row pgx.Row) (recipe.Recipe, error) {
	var (
		r           recipe.Recipe
		ingredients []byte
	)
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Title,
		&r.SourceURL,
		&ingredients,
		&r.Instructions,
		&r.PrepTime,
		&r.Servings,
		&r.ImageURL,
		&r.Host,
		&r.Notes,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return recipe.Recipe{}, err //nolint:wrapcheck // callers classify pgx.ErrNoRows
	}
	r.Ingredients = []string{}
	if len(ingredients) > 0 {
		if err := json.Unmarshal(ingredients, &r.Ingredients); err != nil {
			return recipe.Recipe{}, fmt.Errorf("decode ingredients: %w", err)
		}
	}
	return r, nil
}
