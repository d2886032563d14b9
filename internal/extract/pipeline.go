// Package extract turns raw recipe pages into normalized records using an
// ordered fallback chain: specialized per-site rules, then schema.org JSON-LD,
// then a heuristic that only looks at the page heading.
package extract

import (
	"bytes"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-box/internal/metrics"
	"github.com/JakeFAU/recipe-box/internal/recipe"
)

// Stage names reported in logs and metrics.
const (
	StageSite      = "site"
	StageJSONLD    = "jsonld"
	StageHeuristic = "heuristic"
)

// Pipeline implements recipe.Extractor.
type Pipeline struct {
	sites  *Registry
	logger *zap.Logger
}

// NewPipeline wires the site registry and logger. A nil registry disables the
// specialized stage.
func NewPipeline(sites *Registry, logger *zap.Logger) *Pipeline {
	if sites == nil {
		sites = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{sites: sites, logger: logger}
}

// Extract runs the fallback chain and always returns a record; stage failures
// only move extraction on to the next stage.
func (p *Pipeline) Extract(pageURL string, html []byte) recipe.Parsed {
	parsed, stage := p.run(pageURL, html)
	metrics.ObserveExtraction(stage)
	p.logger.Info("recipe extracted",
		zap.String("url", pageURL),
		zap.String("stage", stage),
		zap.String("title", parsed.Title),
		zap.Int("ingredients", len(parsed.Ingredients)),
	)
	return parsed
}

func (p *Pipeline) run(pageURL string, html []byte) (recipe.Parsed, string) {
	u, err := url.Parse(pageURL)
	if err != nil {
		p.logger.Warn("unparseable page url", zap.String("url", pageURL), zap.Error(err))
		u = &url.URL{}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		p.logger.Warn("html parse failed", zap.String("url", pageURL), zap.Error(err))
		return heuristic(nil, u), StageHeuristic
	}

	if site, domain, ok := p.sites.Lookup(u.Hostname()); ok {
		parsed, err := site.Extract(doc, u)
		if err == nil {
			return normalize(parsed, u), StageSite
		}
		p.logger.Debug("site extractor failed; falling back",
			zap.String("domain", domain),
			zap.Error(err),
		)
	}

	if parsed, ok := structuredData(doc, u, p.logger); ok {
		return parsed, StageJSONLD
	}
	return heuristic(doc, u), StageHeuristic
}

// normalize fills the invariants a site extractor may have left unset.
func normalize(p recipe.Parsed, u *url.URL) recipe.Parsed {
	if p.Title == "" {
		p.Title = recipe.DefaultTitle
	}
	if p.Ingredients == nil {
		p.Ingredients = []string{}
	}
	if p.Host == "" {
		p.Host = u.Host
	}
	return p
}
