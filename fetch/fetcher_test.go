package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bizlist-scraper/utils"
)

func newTestProxy(t *testing.T, srv *httptest.Server, retries int) *ProxyFetcher {
	t.Helper()
	p, err := NewProxyFetcher(ProxyConfig{
		APIKey:     "test-key",
		Endpoint:   srv.URL + "/",
		Timeout:    5 * time.Second,
		MaxRetries: retries,
		BaseDelay:  time.Millisecond,
	}, utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewProxyFetcher: %v", err)
	}
	return p
}

func TestNewProxyFetcherRequiresKey(t *testing.T) {
	_, err := NewProxyFetcher(ProxyConfig{}, utils.NewDiscardLogger())
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestProxyFetcherPassesParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("api_key") != "test-key" {
			t.Errorf("api_key: got %q", q.Get("api_key"))
		}
		if q.Get("url") != "https://market.example/list?page=2" {
			t.Errorf("url: got %q", q.Get("url"))
		}
		if q.Get("render") != "true" {
			t.Errorf("render: got %q", q.Get("render"))
		}
		if q.Get("country_code") != "us" {
			t.Errorf("country_code: got %q", q.Get("country_code"))
		}
		_, _ = w.Write([]byte("<html>ok</html>"))
	}))
	defer srv.Close()

	p := newTestProxy(t, srv, 1)
	body, err := p.Fetch(context.Background(), "https://market.example/list?page=2", Options{Render: true, CountryCode: "us"})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "<html>ok</html>" {
		t.Errorf("body: got %q", body)
	}
}

func TestProxyFetcherOmitsOptionalParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Has("render") || q.Has("country_code") {
			t.Errorf("unexpected optional params: %v", q)
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	p := newTestProxy(t, srv, 1)
	if _, err := p.Fetch(context.Background(), "https://market.example/", Options{}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func TestProxyFetcherRetriesServerErrors(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("finally"))
	}))
	defer srv.Close()

	p := newTestProxy(t, srv, 3)
	body, err := p.Fetch(context.Background(), "https://market.example/", Options{})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "finally" || calls != 3 {
		t.Errorf("got body %q after %d calls; want %q after 3", body, calls, "finally")
	}
}

func TestProxyFetcherDoesNotRetryClientErrors(t *testing.T) {
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := newTestProxy(t, srv, 4)
	_, err := p.Fetch(context.Background(), "https://market.example/missing", Options{})
	if !IsStatus(err, http.StatusNotFound) {
		t.Errorf("expected 404 StatusError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("calls: got %d, want 1", calls)
	}
}

type memoryCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *memoryCache) Set(_ context.Context, key string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = body
	return nil
}

type countingFetcher struct {
	calls int64
}

func (c *countingFetcher) Fetch(_ context.Context, url string, _ Options) ([]byte, error) {
	atomic.AddInt64(&c.calls, 1)
	return []byte("page:" + url), nil
}

func TestCachedFetcherServesRepeatFromCache(t *testing.T) {
	next := &countingFetcher{}
	cf := NewCachedFetcher(next, &memoryCache{data: map[string][]byte{}}, utils.NewDiscardLogger())

	for i := 0; i < 3; i++ {
		body, err := cf.Fetch(context.Background(), "https://market.example/a/", Options{})
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if string(body) != "page:https://market.example/a/" {
			t.Errorf("body: got %q", body)
		}
	}
	if next.calls != 1 {
		t.Errorf("underlying fetches: got %d, want 1", next.calls)
	}

	if _, err := cf.Fetch(context.Background(), "https://market.example/a/", Options{Render: true}); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if next.calls != 2 {
		t.Errorf("render flag should change the cache key; underlying fetches: got %d, want 2", next.calls)
	}
}

func TestPageKeyNormalizesURL(t *testing.T) {
	if PageKey("https://Market.example/a/", Options{}) != PageKey("https://market.example/a", Options{}) {
		t.Error("PageKey should normalize the URL")
	}
}

type optionsRecorder struct{ got Options }

func (o *optionsRecorder) Fetch(_ context.Context, _ string, opts Options) ([]byte, error) {
	o.got = opts
	return nil, nil
}

func TestDefaultsFetcher(t *testing.T) {
	rec := &optionsRecorder{}
	d := &DefaultsFetcher{Next: rec, ForceRender: true, CountryCode: "us"}

	_, _ = d.Fetch(context.Background(), "https://x.example", Options{})
	if !rec.got.Render || rec.got.CountryCode != "us" {
		t.Errorf("defaults not applied: %+v", rec.got)
	}

	_, _ = d.Fetch(context.Background(), "https://x.example", Options{CountryCode: "gb"})
	if rec.got.CountryCode != "gb" {
		t.Errorf("site country code should win, got %q", rec.got.CountryCode)
	}
}

func TestProxyFetcherHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte("<html>after wait</html>"))
	}))
	defer srv.Close()

	p := newTestProxy(t, srv, 3)
	start := time.Now()
	body, err := p.Fetch(context.Background(), "https://market.example/", Options{})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "<html>after wait</html>" {
		t.Errorf("body: got %q", body)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls: got %d, want 2", got)
	}
	if elapsed < time.Second {
		t.Errorf("elapsed: got %v, want at least 1s from Retry-After", elapsed)
	}
}
