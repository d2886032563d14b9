package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-box/internal/recipe"
)

type parseRequest struct {
	URL string `json:"url"`
}

type parseAndSaveRequest struct {
	URL    string   `json:"url"`
	UserID looseInt `json:"userId"`
	Notes  string   `json:"notes"`
}

type createRecipeRequest struct {
	Title        string      `json:"title"`
	UserID       looseInt    `json:"userId"`
	SourceURL    *string     `json:"sourceUrl"`
	Ingredients  []string    `json:"ingredients"`
	Instructions *string     `json:"instructions"`
	PrepTime     looseString `json:"prepTime"`
	Servings     looseString `json:"servings"`
	ImageURL     *string     `json:"imageUrl"`
	Host         *string     `json:"host"`
	Notes        string      `json:"notes"`
}

type updateNotesRequest struct {
	Notes string `json:"notes"`
}

// parseRecipe handles POST /api/recipes/parse. It fetches the page and returns
// the normalized record without persisting anything.
func (s *Server) parseRecipe(w http.ResponseWriter, r *http.Request) {
	var req parseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	parsed, err := s.fetchAndExtract(r.Context(), url)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to parse recipe: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, parsed)
}

// parseAndSave handles POST /api/recipes/parse-and-save: one fetch, one
// extraction, one create.
func (s *Server) parseAndSave(w http.ResponseWriter, r *http.Request) {
	var req parseAndSaveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		writeError(w, http.StatusBadRequest, "URL is required")
		return
	}
	parsed, err := s.fetchAndExtract(r.Context(), url)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to parse recipe: "+err.Error())
		return
	}
	created, err := s.store.Create(r.Context(), recipe.FromParsed(parsed, req.UserID.or(s.defaultUserID), url, req.Notes))
	if err != nil {
		s.writeStoreError(w, "save recipe", err)
		return
	}
	s.logger.Info("recipe saved",
		zap.Int64("id", created.ID),
		zap.Int64("user_id", created.UserID),
		zap.String("title", created.Title),
	)
	writeJSON(w, http.StatusCreated, created)
}

// listRecipes handles GET /api/recipes?userId=.
func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	userID := s.defaultUserID
	if raw := r.URL.Query().Get("userId"); raw != "" {
		v, err := parseID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "userId must be an integer")
			return
		}
		userID = v
	}
	recipes, err := s.store.ListByUser(r.Context(), userID)
	if err != nil {
		s.writeStoreError(w, "list recipes", err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// createRecipe handles POST /api/recipes.
func (s *Server) createRecipe(w http.ResponseWriter, r *http.Request) {
	var req createRecipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	created, err := s.store.Create(r.Context(), recipe.NewRecipe{
		UserID:       req.UserID.or(s.defaultUserID),
		Title:        req.Title,
		SourceURL:    req.SourceURL,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		PrepTime:     req.PrepTime.value,
		Servings:     req.Servings.value,
		ImageURL:     req.ImageURL,
		Host:         req.Host,
		Notes:        req.Notes,
	})
	if err != nil {
		s.writeStoreError(w, "create recipe", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// getRecipe handles GET /api/recipes/{recipe_id}.
func (s *Server) getRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(w, r)
	if !ok {
		return
	}
	rec, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, "get recipe", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// updateNotes handles PUT /api/recipes/{recipe_id}/notes. A missing notes field
// clears the notes.
func (s *Server) updateNotes(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(w, r)
	if !ok {
		return
	}
	var req updateNotesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidJSON.Error())
		return
	}
	updated, err := s.store.UpdateNotes(r.Context(), id, req.Notes)
	if err != nil {
		s.writeStoreError(w, "update notes", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// deleteRecipe handles DELETE /api/recipes/{recipe_id}.
func (s *Server) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, ok := recipeID(w, r)
	if !ok {
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.writeStoreError(w, "delete recipe", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Recipe deleted"})
}

func (s *Server) fetchAndExtract(ctx context.Context, url string) (recipe.Parsed, error) {
	page, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		s.logger.Warn("fetch failed", zap.String("url", url), zap.Error(err))
		return recipe.Parsed{}, err //nolint:wrapcheck // already a *recipe.FetchError
	}
	return s.extractor.Extract(url, page.Body), nil
}

// writeStoreError maps store errors onto status codes.
func (s *Server) writeStoreError(w http.ResponseWriter, op string, err error) {
	var vErr *recipe.ValidationError
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, recipe.ErrUnknownUser):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, recipe.ErrNotFound):
		writeError(w, http.StatusNotFound, recipe.ErrNotFound.Error())
	default:
		s.logger.Error(op+" failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to "+op)
	}
}

// recipeID parses the path id. Non-integer ids are unknown recipes.
func recipeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := parseID(chi.URLParam(r, "recipe_id"))
	if err != nil {
		writeError(w, http.StatusNotFound, recipe.ErrNotFound.Error())
		return 0, false
	}
	return id, true
}
