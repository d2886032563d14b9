package extract

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/recipe-box/internal/recipe"
)

// ErrNoMatch reports that a site extractor could not find a recipe in the page.
var ErrNoMatch = errors.New("no recipe found")

// SelectorRules is a declarative rule set of CSS selectors for one site's
// markup. Only Title is required, but a page only matches when both the title
// and at least one ingredient are found.
type SelectorRules struct {
	Title        string `mapstructure:"title"`
	Ingredients  string `mapstructure:"ingredients"`
	Instructions string `mapstructure:"instructions"`
	TotalTime    string `mapstructure:"total_time"`
	PrepTime     string `mapstructure:"prep_time"`
	Yield        string `mapstructure:"yield"`
	Image        string `mapstructure:"image"`
}

// Validate checks that the rule set can be evaluated.
func (r SelectorRules) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("title selector is required")
	}
	return nil
}

// Extract evaluates the selectors against doc.
func (r SelectorRules) Extract(doc *goquery.Document, pageURL *url.URL) (recipe.Parsed, error) {
	if err := r.Validate(); err != nil {
		return recipe.Parsed{}, err
	}
	title := squash(doc.Find(r.Title).First().Text())
	if title == "" {
		return recipe.Parsed{}, fmt.Errorf("title %q: %w", r.Title, ErrNoMatch)
	}
	out := recipe.NewParsed(pageURL.Host)
	out.Title = title
	if r.Ingredients != "" {
		out.Ingredients = texts(doc.Find(r.Ingredients))
	}
	if len(out.Ingredients) == 0 {
		return recipe.Parsed{}, fmt.Errorf("ingredients %q: %w", r.Ingredients, ErrNoMatch)
	}
	if r.Instructions != "" {
		out.Instructions = strings.Join(texts(doc.Find(r.Instructions)), "\n")
	}
	if v := firstValue(doc, r.TotalTime); v != "" {
		out.PrepTime = &v
	} else if v := firstValue(doc, r.PrepTime); v != "" {
		out.PrepTime = &v
	}
	if v := firstValue(doc, r.Yield); v != "" {
		out.Servings = &v
	}
	if r.Image != "" {
		if img := imageURL(doc.Find(r.Image).First(), pageURL); img != "" {
			out.ImageURL = &img
		}
	}
	return out, nil
}

// Microdata extracts schema.org Recipe microdata (itemscope/itemprop markup).
type Microdata struct{}

// Extract reads the first Recipe item scope in doc.
func (Microdata) Extract(doc *goquery.Document, pageURL *url.URL) (recipe.Parsed, error) {
	scope := doc.Find(`[itemscope][itemtype*="schema.org/Recipe"]`).First()
	if scope.Length() == 0 {
		return recipe.Parsed{}, fmt.Errorf("recipe itemscope: %w", ErrNoMatch)
	}
	title := squash(propValue(ownProps(scope, "name").First()))
	if title == "" {
		return recipe.Parsed{}, fmt.Errorf("recipe name: %w", ErrNoMatch)
	}
	out := recipe.NewParsed(pageURL.Host)
	out.Title = title

	ingredients := ownProps(scope, "recipeIngredient")
	if ingredients.Length() == 0 {
		ingredients = ownProps(scope, "ingredients")
	}
	out.Ingredients = texts(ingredients)
	if len(out.Ingredients) == 0 {
		return recipe.Parsed{}, fmt.Errorf("recipe ingredients: %w", ErrNoMatch)
	}

	var steps []string
	ownProps(scope, "recipeInstructions").Each(func(_ int, s *goquery.Selection) {
		if _, nested := s.Attr("itemscope"); nested {
			if text := s.Find(`[itemprop="text"]`).First(); text.Length() > 0 {
				s = text
			}
		}
		if v := squash(s.Text()); v != "" {
			steps = append(steps, v)
		}
	})
	out.Instructions = strings.Join(steps, "\n")

	if v := squash(propValue(ownProps(scope, "totalTime").First())); v != "" {
		out.PrepTime = &v
	} else if v := squash(propValue(ownProps(scope, "prepTime").First())); v != "" {
		out.PrepTime = &v
	}
	if v := squash(propValue(ownProps(scope, "recipeYield").First())); v != "" {
		out.Servings = &v
	}
	if img := imageURL(ownProps(scope, "image").First(), pageURL); img != "" {
		out.ImageURL = &img
	}
	return out, nil
}

// ownProps returns the itemprop elements that belong to scope itself rather
// than to an item nested inside it.
func ownProps(scope *goquery.Selection, prop string) *goquery.Selection {
	root := scope.Get(0)
	return scope.Find(fmt.Sprintf(`[itemprop~=%q]`, prop)).FilterFunction(func(_ int, s *goquery.Selection) bool {
		owner := s.ParentsFiltered("[itemscope]").First()
		return owner.Length() > 0 && owner.Get(0) == root
	})
}

func propValue(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"content", "datetime"} {
		if v, ok := s.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return v
		}
	}
	return s.Text()
}

func firstValue(doc *goquery.Document, selector string) string {
	if selector == "" {
		return ""
	}
	return squash(propValue(doc.Find(selector).First()))
}

func imageURL(s *goquery.Selection, pageURL *url.URL) string {
	if s.Length() == 0 {
		return ""
	}
	if !s.Is("img, meta, link, a, source") {
		if inner := s.Find("img").First(); inner.Length() > 0 {
			s = inner
		}
	}
	for _, attr := range []string{"content", "src", "data-src", "href"} {
		v, ok := s.Attr(attr)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		ref, err := url.Parse(strings.TrimSpace(v))
		if err != nil {
			return ""
		}
		return pageURL.ResolveReference(ref).String()
	}
	return ""
}

func texts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		if v := squash(s.Text()); v != "" {
			out = append(out, v)
		}
	})
	return out
}

// squash trims and collapses internal whitespace runs to single spaces.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// wprmRules covers sites built on the WP Recipe Maker plugin.
var wprmRules = SelectorRules{
	Title:        ".wprm-recipe-name",
	Ingredients:  ".wprm-recipe-ingredient",
	Instructions: ".wprm-recipe-instruction-text",
	TotalTime:    ".wprm-recipe-total_time-container .wprm-recipe-time",
	PrepTime:     ".wprm-recipe-prep_time-container .wprm-recipe-time",
	Yield:        ".wprm-recipe-servings",
	Image:        ".wprm-recipe-image img",
}

// dotdashRules covers the Dotdash Meredith recipe templates.
var dotdashRules = SelectorRules{
	Title:        "h1.article-heading",
	Ingredients:  ".mm-recipes-structured-ingredients__list-item, .structured-ingredients__list-item",
	Instructions: ".mm-recipes-steps__content li > p, #mntl-sc-block_3-0 li > p",
	TotalTime:    ".mm-recipes-details__item--total-time .mm-recipes-details__value",
	PrepTime:     ".mm-recipes-details__item--prep-time .mm-recipes-details__value",
	Yield:        ".mm-recipes-details__item--servings .mm-recipes-details__value",
	Image:        ".primary-image__image, .figure-media img",
}

// DefaultRegistry returns a Registry preloaded with the built-in site rules.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, domain := range []string{"allrecipes.com", "simplyrecipes.com", "seriouseats.com", "eatingwell.com"} {
		r.Register(domain, dotdashRules)
	}
	for _, domain := range []string{"budgetbytes.com", "pinchofyum.com", "cookieandkate.com", "minimalistbaker.com"} {
		r.Register(domain, wprmRules)
	}
	for _, domain := range []string{"food.com", "bettycrocker.com"} {
		r.Register(domain, Microdata{})
	}
	return r
}
