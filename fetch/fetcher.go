// Package fetch retrieves marketplace pages, either through the ScraperAPI
// proxy, a local headless browser, or a Redis-backed cache in front of
// either.
package fetch

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingAPIKey is the one fatal startup condition.
var ErrMissingAPIKey = errors.New("fetch: SCRAPERAPI_KEY is not set")

// Options are per-request proxy flags.
type Options struct {
	Render      bool
	CountryCode string
}

// Fetcher returns the HTML body of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string, opts Options) ([]byte, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: HTTP %d for %s", e.Code, e.URL)
}

// Retryable reports whether a retry might succeed.
func (e *StatusError) Retryable() bool {
	return e.Code == 429 || e.Code >= 500
}

// DefaultsFetcher fills request options before delegating: ForceRender turns
// rendering on for every page and CountryCode applies when a site sets none.
type DefaultsFetcher struct {
	Next        Fetcher
	ForceRender bool
	CountryCode string
}

func (d *DefaultsFetcher) Fetch(ctx context.Context, url string, opts Options) ([]byte, error) {
	if d.ForceRender {
		opts.Render = true
	}
	if opts.CountryCode == "" {
		opts.CountryCode = d.CountryCode
	}
	return d.Next.Fetch(ctx, url, opts)
}
