package extract

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestRegistryLookup(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("WWW.Example.com", Microdata{})

	_, domain, ok := reg.Lookup("example.com")
	require.True(t, ok)
	require.Equal(t, "example.com", domain)

	_, domain, ok = reg.Lookup("www.example.com:443")
	require.True(t, ok)
	require.Equal(t, "example.com", domain)

	_, domain, ok = reg.Lookup("m.recipes.example.com")
	require.True(t, ok)
	require.Equal(t, "example.com", domain)

	_, _, ok = reg.Lookup("example.org")
	require.False(t, ok)

	_, _, ok = reg.Lookup("")
	require.False(t, ok)

	require.Equal(t, []string{"example.com"}, reg.Domains())
}

func TestRegistryIgnoresEmptyRegistrations(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register("", Microdata{})
	reg.Register("example.com", nil)
	require.Empty(t, reg.Domains())
}

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	t.Parallel()

	reg := DefaultRegistry()
	for _, host := range []string{"www.allrecipes.com", "budgetbytes.com", "www.food.com"} {
		_, _, ok := reg.Lookup(host)
		require.True(t, ok, host)
	}
}

func TestSelectorRulesExtract(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body>
<h2 class="wprm-recipe-name"> Black Bean
  Soup </h2>
<div class="wprm-recipe-image"><img src="/img/soup.jpg"></div>
<ul><li class="wprm-recipe-ingredient">1 can beans</li><li class="wprm-recipe-ingredient"> 2 cups stock </li></ul>
<div class="wprm-recipe-instruction-text">Simmer.</div>
<div class="wprm-recipe-instruction-text">Blend.</div>
<div class="wprm-recipe-total_time-container"><span class="wprm-recipe-time">40 minutes</span></div>
<span class="wprm-recipe-servings">4</span>
</body></html>`)

	got, err := wprmRules.Extract(doc, mustURL(t, "https://www.budgetbytes.com/soup/"))
	require.NoError(t, err)
	require.Equal(t, "Black Bean Soup", got.Title)
	require.Equal(t, []string{"1 can beans", "2 cups stock"}, got.Ingredients)
	require.Equal(t, "Simmer.\nBlend.", got.Instructions)
	require.Equal(t, "40 minutes", *got.PrepTime)
	require.Equal(t, "4", *got.Servings)
	require.Equal(t, "https://www.budgetbytes.com/img/soup.jpg", *got.ImageURL)
	require.Equal(t, "www.budgetbytes.com", got.Host)
}

func TestSelectorRulesNoMatch(t *testing.T) {
	t.Parallel()

	_, err := wprmRules.Extract(mustDoc(t, `<h1>Plain</h1>`), mustURL(t, "https://pinchofyum.com/x"))
	require.ErrorIs(t, err, ErrNoMatch)

	_, err = wprmRules.Extract(
		mustDoc(t, `<h2 class="wprm-recipe-name">Heading Only</h2><div class="wprm-recipe-instruction-text">Stir.</div>`),
		mustURL(t, "https://pinchofyum.com/x"),
	)
	require.ErrorIs(t, err, ErrNoMatch)

	_, err = SelectorRules{Title: "h1"}.Extract(mustDoc(t, `<h1>Plain</h1>`), mustURL(t, "https://pinchofyum.com/x"))
	require.ErrorIs(t, err, ErrNoMatch)

	_, err = SelectorRules{}.Extract(mustDoc(t, `<h1>Plain</h1>`), mustURL(t, "https://pinchofyum.com/x"))
	require.Error(t, err)
}

func TestMicrodataExtract(t *testing.T) {
	t.Parallel()

	doc := mustDoc(t, `<html><body>
<div itemscope itemtype="http://schema.org/Recipe">
  <h1 itemprop="name">Pancakes</h1>
  <div itemprop="author" itemscope itemtype="http://schema.org/Person"><span itemprop="name">Chef Ann</span></div>
  <meta itemprop="totalTime" content="PT20M">
  <span itemprop="recipeYield">8 pancakes</span>
  <img itemprop="image" src="https://cdn.example.com/p.jpg">
  <li itemprop="recipeIngredient">1 cup flour</li>
  <li itemprop="recipeIngredient">1 egg</li>
  <div itemprop="recipeInstructions" itemscope itemtype="http://schema.org/HowToStep">
    <span itemprop="text">Whisk.</span>
  </div>
  <div itemprop="recipeInstructions">Fry.</div>
</div></body></html>`)

	got, err := Microdata{}.Extract(doc, mustURL(t, "https://www.food.com/recipe/pancakes"))
	require.NoError(t, err)
	require.Equal(t, "Pancakes", got.Title)
	require.Equal(t, []string{"1 cup flour", "1 egg"}, got.Ingredients)
	require.Equal(t, "Whisk.\nFry.", got.Instructions)
	require.Equal(t, "PT20M", *got.PrepTime)
	require.Equal(t, "8 pancakes", *got.Servings)
	require.Equal(t, "https://cdn.example.com/p.jpg", *got.ImageURL)
}

func TestMicrodataNoScope(t *testing.T) {
	t.Parallel()

	_, err := Microdata{}.Extract(mustDoc(t, `<h1>Nothing</h1>`), mustURL(t, "https://food.com/x"))
	require.ErrorIs(t, err, ErrNoMatch)

	_, err = Microdata{}.Extract(mustDoc(t, `<div itemscope itemtype="https://schema.org/Recipe">
<h1 itemprop="name">Name Only</h1></div>`), mustURL(t, "https://food.com/x"))
	require.ErrorIs(t, err, ErrNoMatch)
}
