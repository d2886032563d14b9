package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/recipe-box/internal/recipe"
)

const testAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

func TestFetcherBuildCollector(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "coverage-agent", Timeout: time.Second}, zap.NewNop())
	collector := f.buildCollector(context.Background(), time.Unix(0, 0), &recipe.Page{}, new(error))
	if collector.UserAgent != "coverage-agent" {
		t.Fatalf("expected user agent override, got %q", collector.UserAgent)
	}
	if !collector.IgnoreRobotsTxt {
		t.Fatal("expected robots txt to be ignored")
	}
	if !collector.ParseHTTPErrorResponse {
		t.Fatal("expected error responses to be parsed")
	}
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	f := New(Config{}, nil)
	var page recipe.Page
	var fetchErr error

	hooks := &stubHooks{}
	f.configureCollectorHooks(hooks, time.Unix(0, 0), &page, &fetchErr)
	if hooks.onResponse == nil || hooks.onError == nil {
		t.Fatal("expected hooks to be registered")
	}

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusCreated,
		Body:       []byte("body"),
		Headers:    &http.Header{"X-Resp": {"ok"}},
		Request: &colly.Request{
			URL: mustParseURL(t, "https://example.com/soup"),
		},
	})
	if page.StatusCode != http.StatusCreated || string(page.Body) != "body" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Headers.Get("X-Resp") != "ok" {
		t.Fatalf("expected headers copied, got %+v", page.Headers)
	}
	if page.URL != "https://example.com/soup" {
		t.Fatalf("expected final url, got %q", page.URL)
	}

	hooks.onError(nil, errors.New("boom"))
	if fetchErr == nil || fetchErr.Error() != "boom" {
		t.Fatalf("expected fetchErr set, got %v", fetchErr)
	}
}

func TestFetchSendsUserAgentAndReturnsBody(t *testing.T) {
	t.Parallel()

	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><h1>Soup</h1></html>"))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{UserAgent: testAgent, Timeout: 5 * time.Second}, zap.NewNop())
	page, err := f.Fetch(context.Background(), srv.URL+"/soup")
	require.NoError(t, err)
	require.Equal(t, testAgent, gotAgent)
	require.Equal(t, http.StatusOK, page.StatusCode)
	require.Equal(t, "<html><h1>Soup</h1></html>", string(page.Body))
	require.Equal(t, srv.URL+"/soup", page.URL)
}

func TestFetchAllowsRepeatVisits(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{}, zap.NewNop())
	for range 2 {
		_, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
	}
	require.Equal(t, int32(2), hits.Load())
}

func TestFetchConcurrentCallsShareNothing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{Timeout: 5 * time.Second}, zap.NewNop())
	paths := []string{"/a", "/b", "/c", "/d", "/e", "/f", "/g", "/h"}
	bodies := make([]string, len(paths))
	errs := make([]error, len(paths))

	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			page, err := f.Fetch(context.Background(), srv.URL+path)
			errs[i] = err
			bodies[i] = string(page.Body)
		}()
	}
	wg.Wait()

	for i, path := range paths {
		require.NoError(t, errs[i])
		require.Equal(t, path, bodies[i])
	}
}

func TestFetchReturnsNonSuccessPages(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<html><h1>Missing</h1></html>"))
	}))
	t.Cleanup(srv.Close)

	f := New(Config{}, zap.NewNop())
	page, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotFound, page.StatusCode)
	require.Contains(t, string(page.Body), "Missing")
}

func TestFetchUnreachableHost(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	f := New(Config{Timeout: 2 * time.Second}, zap.NewNop())
	_, err := f.Fetch(context.Background(), target)
	require.Error(t, err)

	var fetchErr *recipe.FetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, target, fetchErr.URL)
}

func TestFetchCanceledContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("late"))
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := New(Config{}, zap.NewNop())
	_, err := f.Fetch(ctx, srv.URL)
	var fetchErr *recipe.FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse url %q: %v", raw, err)
	}
	return u
}

type stubHooks struct {
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
