// Package collyfetcher implements recipe.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-box/internal/metrics"
	"github.com/JakeFAU/recipe-box/internal/recipe"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher implements recipe.Fetcher using the Colly collector. Each call issues
// exactly one GET; there are no retries.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(
		colly.Async(false),
		// the same recipe may be parsed and saved many times
		colly.AllowURLRevisit(),
	)
	c.IgnoreRobotsTxt = true
	// non-2xx pages still go through extraction
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newHTTPTransport())
	// clones share the backend client, so the timeout is fixed here once
	f := &Fetcher{cfg: cfg, logger: logger}
	c.SetRequestTimeout(f.timeout())
	f.baseCollector = c
	return f
}

// Fetch executes a single HTTP GET using Colly. Transport failures are returned
// as *recipe.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (recipe.Page, error) {
	var (
		page     recipe.Page
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(ctx, start, &page, &fetchErr)

	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		metrics.ObserveFetch(url, metrics.FetchError, 0)
		f.logger.Warn("recipe fetch failed", zap.String("url", url), zap.Error(err))
		return recipe.Page{}, &recipe.FetchError{URL: url, Err: err}
	}
	metrics.ObserveFetch(url, metrics.FetchOK, len(page.Body))
	f.logger.Debug("recipe fetched",
		zap.String("url", page.URL),
		zap.Int("status", page.StatusCode),
		zap.Int("bytes", len(page.Body)),
		zap.Duration("duration", page.Duration),
	)
	return page, nil
}

func (f *Fetcher) buildCollector(
	ctx context.Context,
	start time.Time,
	page *recipe.Page,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}

	f.configureCollectorHooks(collector, start, page, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	start time.Time,
	page *recipe.Page,
	fetchErr *error,
) {
	hooks.OnResponse(func(r *colly.Response) {
		*page = recipe.Page{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    r.Headers.Clone(),
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func (f *Fetcher) timeout() time.Duration {
	if f.cfg.Timeout > 0 {
		return f.cfg.Timeout
	}
	return defaultTimeout
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
