package config

import (
	"errors"
	"strings"
	"testing"

	"bizlist-scraper/fetch"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SCRAPERAPI_KEY", "")
	t.Setenv("FETCH_MODE", "")
	t.Setenv("MAX_CONCURRENCY", "")

	cfg := Load()
	if cfg.FetchMode != FetchModeProxy {
		t.Errorf("FetchMode: got %q, want %q", cfg.FetchMode, FetchModeProxy)
	}
	if cfg.ScraperAPIEndpoint != fetch.DefaultEndpoint {
		t.Errorf("ScraperAPIEndpoint: got %q", cfg.ScraperAPIEndpoint)
	}
	if cfg.MaxConcurrency != 5 {
		t.Errorf("MaxConcurrency: got %d, want 5", cfg.MaxConcurrency)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SCRAPERAPI_KEY", "k123")
	t.Setenv("FETCH_MODE", "Browser")
	t.Setenv("RENDER_JS", "true")
	t.Setenv("MAX_CONCURRENCY", "12")
	t.Setenv("RATE_LIMIT_MS", "not-a-number")

	cfg := Load()
	if cfg.ScraperAPIKey != "k123" || cfg.FetchMode != FetchModeBrowser || !cfg.RenderJS {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.MaxConcurrency != 12 {
		t.Errorf("MaxConcurrency: got %d, want 12", cfg.MaxConcurrency)
	}
	if cfg.RateLimitMs != 1000 {
		t.Errorf("invalid int should fall back to default, got %d", cfg.RateLimitMs)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
		wantMsg string
	}{
		{"proxy without key", Config{FetchMode: FetchModeProxy, MaxConcurrency: 1}, fetch.ErrMissingAPIKey, ""},
		{"proxy with key", Config{FetchMode: FetchModeProxy, ScraperAPIKey: "k", MaxConcurrency: 1}, nil, ""},
		{"browser without key", Config{FetchMode: FetchModeBrowser, MaxConcurrency: 1}, nil, ""},
		{"unknown mode", Config{FetchMode: "carrier-pigeon", MaxConcurrency: 1}, nil, "unknown FETCH_MODE"},
		{"zero workers", Config{FetchMode: FetchModeBrowser}, nil, "MAX_CONCURRENCY"},
	}

	for _, tt := range tests {
		err := tt.cfg.Validate()
		switch {
		case tt.wantErr != nil:
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("%s: got %v, want %v", tt.name, err, tt.wantErr)
			}
		case tt.wantMsg != "":
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("%s: got %v, want error containing %q", tt.name, err, tt.wantMsg)
			}
		default:
			if err != nil {
				t.Errorf("%s: unexpected error %v", tt.name, err)
			}
		}
	}
}

func TestDSN(t *testing.T) {
	cfg := &Config{
		PostgresHost: "db", PostgresPort: "5433", PostgresUser: "u",
		PostgresPassword: "p", PostgresDB: "bizlist", PostgresSSLMode: "disable",
	}
	want := "host=db port=5433 user=u password=p dbname=bizlist sslmode=disable"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q; want %q", got, want)
	}
}
