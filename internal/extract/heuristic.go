package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/recipe-box/internal/recipe"
)

// heuristic is the terminal stage: a default record whose title comes from the
// first <h1> when the page has one.
func heuristic(doc *goquery.Document, pageURL *url.URL) recipe.Parsed {
	out := recipe.NewParsed(pageURL.Host)
	if doc == nil {
		return out
	}
	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		if title := strings.TrimSpace(h1.Text()); title != "" {
			out.Title = title
		}
	}
	return out
}
