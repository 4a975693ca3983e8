package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"bizlist-scraper/utils"
)

// DefaultEndpoint is the public ScraperAPI endpoint.
const DefaultEndpoint = "https://api.scraperapi.com/"

const maxBodyBytes = 10 << 20

// ProxyConfig configures a ProxyFetcher.
type ProxyConfig struct {
	APIKey     string
	Endpoint   string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// ProxyFetcher fetches pages through the ScraperAPI HTTP proxy.
type ProxyFetcher struct {
	client   *http.Client
	apiKey   string
	endpoint string
	retry    *utils.RetryConfig
	logger   *utils.Logger
}

// NewProxyFetcher returns a ProxyFetcher, or ErrMissingAPIKey.
func NewProxyFetcher(cfg ProxyConfig, logger *utils.Logger) (*ProxyFetcher, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		// Rendered pages regularly take a minute on the proxy side.
		cfg.Timeout = 70 * time.Second
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}

	return &ProxyFetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.BaseDelay,
			MaxDelay:    30 * time.Second,
			Logger:      logger,
		},
		logger: logger,
	}, nil
}

// RequestURL builds the proxy URL for target.
func (p *ProxyFetcher) RequestURL(target string, opts Options) string {
	q := url.Values{}
	q.Set("api_key", p.apiKey)
	q.Set("url", target)
	if opts.Render {
		q.Set("render", "true")
	}
	if opts.CountryCode != "" {
		q.Set("country_code", opts.CountryCode)
	}
	return p.endpoint + "?" + q.Encode()
}

// Fetch retrieves target through the proxy, retrying transport errors,
// 429 and 5xx responses with doubling backoff.
func (p *ProxyFetcher) Fetch(ctx context.Context, target string, opts Options) ([]byte, error) {
	var body []byte

	err := p.retry.Do(ctx, "fetch "+target, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.RequestURL(target, opts), nil)
		if err != nil {
			return utils.Permanent(fmt.Errorf("fetch: build request: %w", err))
		}

		resp, err := p.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return utils.Permanent(ctx.Err())
			}
			return fmt.Errorf("fetch: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			serr := &StatusError{Code: resp.StatusCode, URL: target}
			if !serr.Retryable() {
				return utils.Permanent(serr)
			}
			if resp.StatusCode == http.StatusTooManyRequests {
				p.waitRetryAfter(ctx, resp.Header.Get("Retry-After"))
			}
			return serr
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("fetch: read body: %w", err)
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.logger.Debug("[fetch] %s (%d bytes, render=%v)", target, len(body), opts.Render)
	return body, nil
}

// waitRetryAfter honours a Retry-After header given in seconds, capped at a
// minute, on top of the regular backoff.
func (p *ProxyFetcher) waitRetryAfter(ctx context.Context, header string) {
	secs, err := strconv.Atoi(header)
	if err != nil || secs <= 0 {
		return
	}
	d := time.Duration(secs) * time.Second
	if d > time.Minute {
		d = time.Minute
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// IsStatus reports whether err carries the given HTTP status.
func IsStatus(err error, code int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.Code == code
}
