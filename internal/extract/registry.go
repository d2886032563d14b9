package extract

import (
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/recipe-box/internal/recipe"
)

// SiteExtractor knows how to pull a recipe out of one site's markup.
type SiteExtractor interface {
	Extract(doc *goquery.Document, pageURL *url.URL) (recipe.Parsed, error)
}

// Registry maps domains to their specialized extractors. Unregistered domains
// produce no match rather than an error.
type Registry struct {
	mu    sync.RWMutex
	sites map[string]SiteExtractor
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sites: make(map[string]SiteExtractor)}
}

// Register binds extractor to domain, replacing any previous binding.
func (r *Registry) Register(domain string, extractor SiteExtractor) {
	domain = normalizeDomain(domain)
	if domain == "" || extractor == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sites[domain] = extractor
}

// Lookup finds the extractor for host, trying the host itself and then each
// parent domain (m.example.com, example.com). It reports the matched domain.
func (r *Registry) Lookup(host string) (SiteExtractor, string, bool) {
	if r == nil {
		return nil, "", false
	}
	domain := normalizeDomain(host)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for domain != "" {
		if ex, ok := r.sites[domain]; ok {
			return ex, domain, true
		}
		dot := strings.IndexByte(domain, '.')
		if dot < 0 || !strings.Contains(domain[dot+1:], ".") {
			break
		}
		domain = domain[dot+1:]
	}
	return nil, "", false
}

// Domains lists the registered domains in sorted order.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sites))
	for d := range r.sites {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func normalizeDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	return strings.TrimPrefix(host, "www.")
}
