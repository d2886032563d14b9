// Package recipe defines the core types shared across the fetch, extraction,
// storage, and API subsystems.
package recipe

import (
	"net/http"
	"time"
)

// DefaultTitle is used whenever no extraction stage can find a title.
const DefaultTitle = "Unknown Recipe"

// Parsed is the normalized record produced by the extraction pipeline.
type Parsed struct {
	Title        string   `json:"title"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
	PrepTime     *string  `json:"prepTime"`
	Servings     *string  `json:"servings"`
	ImageURL     *string  `json:"imageUrl"`
	Host         string   `json:"host"`
}

// NewParsed returns the default record for host: unknown title, no ingredients,
// no instructions and no optional fields.
func NewParsed(host string) Parsed {
	return Parsed{
		Title:       DefaultTitle,
		Ingredients: []string{},
		Host:        host,
	}
}

// User owns recipes. Users are provisioned outside this service.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Recipe is a persisted recipe row.
type Recipe struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	SourceURL    *string   `json:"source_url"`
	Ingredients  []string  `json:"ingredients"`
	Instructions *string   `json:"instructions"`
	PrepTime     *string   `json:"prep_time"`
	Servings     *string   `json:"servings"`
	ImageURL     *string   `json:"image_url"`
	Host         *string   `json:"host"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewRecipe carries the caller-supplied fields for Store.Create.
type NewRecipe struct {
	UserID       int64
	Title        string
	SourceURL    *string
	Ingredients  []string
	Instructions *string
	PrepTime     *string
	Servings     *string
	ImageURL     *string
	Host         *string
	Notes        string
}

// Validate enforces the invariants every stored recipe must satisfy.
func (n NewRecipe) Validate() error {
	if n.Title == "" {
		return &ValidationError{Field: "title", Message: "Title is required"}
	}
	if n.UserID <= 0 {
		return &ValidationError{Field: "userId", Message: "userId must be positive"}
	}
	return nil
}

// FromParsed converts an extraction result into a NewRecipe owned by userID.
func FromParsed(p Parsed, userID int64, sourceURL, notes string) NewRecipe {
	ingredients := p.Ingredients
	if ingredients == nil {
		ingredients = []string{}
	}
	n := NewRecipe{
		UserID:      userID,
		Title:       p.Title,
		SourceURL:   &sourceURL,
		Ingredients: ingredients,
		PrepTime:    p.PrepTime,
		Servings:    p.Servings,
		ImageURL:    p.ImageURL,
		Notes:       notes,
	}
	instructions := p.Instructions
	n.Instructions = &instructions
	if p.Host != "" {
		host := p.Host
		n.Host = &host
	}
	return n
}

// Page is the raw result of fetching a recipe URL.
type Page struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Duration     time.Duration
	UsedHeadless bool
}
