package extract

import (
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func ldPage(blocks ...string) string {
	var b strings.Builder
	b.WriteString("<html><head>")
	for _, block := range blocks {
		b.WriteString(`<script type="application/ld+json">`)
		b.WriteString(block)
		b.WriteString("</script>")
	}
	b.WriteString("</head><body><h1>Heading Title</h1></body></html>")
	return b.String()
}

func runStructured(t *testing.T, page string) (string, bool, *ldResult) {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	require.NoError(t, err)
	u, err := url.Parse("https://example.com/recipes/1")
	require.NoError(t, err)
	parsed, ok := structuredData(doc, u, zap.NewNop())
	return parsed.Title, ok, &ldResult{
		ingredients:  parsed.Ingredients,
		instructions: parsed.Instructions,
		prepTime:     deref(parsed.PrepTime),
		servings:     deref(parsed.Servings),
		imageURL:     deref(parsed.ImageURL),
		host:         parsed.Host,
	}
}

type ldResult struct {
	ingredients  []string
	instructions string
	prepTime     string
	servings     string
	imageURL     string
	host         string
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}

func TestStructuredDataSoupScenario(t *testing.T) {
	t.Parallel()

	title, ok, got := runStructured(t, ldPage(
		`{"@type":"Recipe","name":"Soup","recipeIngredient":["salt"],` +
			`"recipeInstructions":[{"text":"Boil"},{"text":"Serve"}],"image":"http://x/img.png"}`,
	))

	require.True(t, ok)
	require.Equal(t, "Soup", title)
	require.Equal(t, []string{"salt"}, got.ingredients)
	require.Equal(t, "Boil\nServe", got.instructions)
	require.Equal(t, "http://x/img.png", got.imageURL)
	require.Equal(t, "example.com", got.host)
	require.Equal(t, "<nil>", got.prepTime)
	require.Equal(t, "<nil>", got.servings)
}

func TestStructuredDataInstructionShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name         string
		instructions string
		want         string
	}{
		{"plain string list", `["Chop","Fry","Eat"]`, "Chop\nFry\nEat"},
		{"plain string", `"Mix everything."`, "Mix everything."},
		{"mixed list", `["Chop",{"@type":"HowToStep","text":"Fry"}]`, "Chop\nFry"},
		{
			"sections",
			`[{"@type":"HowToSection","name":"Dough","itemListElement":[{"@type":"HowToStep","text":"Knead"}]},` +
				`{"@type":"HowToSection","name":"Bake","itemListElement":[{"text":"Heat oven"},{"text":"Bake"}]}]`,
			"Knead\nHeat oven\nBake",
		},
		{"single step object", `{"@type":"HowToStep","text":"Stir"}`, "Stir"},
		{"name fallback", `[{"@type":"HowToStep","name":"Whisk"}]`, "Whisk"},
		{"empty step keeps its line", `[{"text":"Chop"},{"@type":"HowToStep"},{"text":"Serve"}]`, "Chop\n\nServe"},
		{"missing", `null`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, ok, got := runStructured(t, ldPage(
				`{"@type":"Recipe","name":"X","recipeInstructions":`+tc.instructions+`}`,
			))
			require.True(t, ok)
			require.Equal(t, tc.want, got.instructions)
		})
	}
}

func TestStructuredDataImageShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		image string
		want  string
	}{
		{"string", `"http://x/a.png"`, "http://x/a.png"},
		{"object", `{"@type":"ImageObject","url":"http://x/b.png"}`, "http://x/b.png"},
		{"list of strings", `["http://x/c1.png","http://x/c2.png"]`, "http://x/c1.png"},
		{"list of objects", `[{"url":"http://x/d1.png"},{"url":"http://x/d2.png"}]`, "http://x/d1.png"},
		{"empty list", `[]`, "<nil>"},
		{"object without url", `{"@type":"ImageObject"}`, "<nil>"},
		{"number", `42`, "<nil>"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, ok, got := runStructured(t, ldPage(`{"@type":"Recipe","name":"X","image":`+tc.image+`}`))
			require.True(t, ok)
			require.Equal(t, tc.want, got.imageURL)
		})
	}
}

func TestStructuredDataTimingAndYield(t *testing.T) {
	t.Parallel()

	_, _, got := runStructured(t, ldPage(
		`{"@type":"Recipe","name":"X","totalTime":"PT1H","prepTime":"PT10M","recipeYield":4}`,
	))
	require.Equal(t, "PT1H", got.prepTime)
	require.Equal(t, "4", got.servings)

	_, _, got = runStructured(t, ldPage(
		`{"@type":"Recipe","name":"X","totalTime":"","prepTime":"PT10M","recipeYield":["","6 servings","6"]}`,
	))
	require.Equal(t, "PT10M", got.prepTime)
	require.Equal(t, "6 servings", got.servings)
}

func TestStructuredDataDefaultsTitle(t *testing.T) {
	t.Parallel()

	title, ok, got := runStructured(t, ldPage(`{"@type":"Recipe","recipeIngredient":"1 egg"}`))
	require.True(t, ok)
	require.Equal(t, "Unknown Recipe", title)
	require.Equal(t, []string{"1 egg"}, got.ingredients)
	require.Equal(t, "", got.instructions)
}

func TestStructuredDataSkipsBadBlocksAndNonRecipes(t *testing.T) {
	t.Parallel()

	title, ok, _ := runStructured(t, ldPage(
		`{not json`,
		`{"@type":"WebSite","name":"Site"}`,
		`[{"@type":"BreadcrumbList"},{"@type":"Recipe","name":"Second Block"}]`,
		`{"@type":"Recipe","name":"Too Late"}`,
	))
	require.True(t, ok)
	require.Equal(t, "Second Block", title)
}

func TestStructuredDataGraphAndTypeList(t *testing.T) {
	t.Parallel()

	title, ok, _ := runStructured(t, ldPage(
		`{"@context":"https://schema.org","@graph":[{"@type":"Organization","name":"Org"},` +
			`{"@type":["Recipe","NewsArticle"],"name":"Graph Recipe"}]}`,
	))
	require.True(t, ok)
	require.Equal(t, "Graph Recipe", title)
}

func TestStructuredDataNoRecipe(t *testing.T) {
	t.Parallel()

	_, ok, _ := runStructured(t, ldPage(`{"@type":"Article","name":"News"}`))
	require.False(t, ok)

	_, ok, _ = runStructured(t, `<html><body><script type="text/javascript">var a = 1;</script></body></html>`)
	require.False(t, ok)
}

func TestFindRecipeRejectsInvalidJSON(t *testing.T) {
	t.Parallel()

	r, err := findRecipe([]byte(`{"@type":"Recipe",`))
	require.ErrorIs(t, err, errInvalidBlock)
	require.Nil(t, r)
}
