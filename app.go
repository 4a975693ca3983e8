package main

import (
	"context"
	"fmt"
	"time"

	"bizlist-scraper/config"
	"bizlist-scraper/extract"
	"bizlist-scraper/fetch"
	"bizlist-scraper/models"
	"bizlist-scraper/services"
	"bizlist-scraper/sites"
	"bizlist-scraper/storage"
	"bizlist-scraper/utils"
)

// app bundles what every command needs.
type app struct {
	cfg      *config.Config
	logger   *utils.Logger
	policy   *extract.Policy
	registry *sites.Registry
}

func newApp() (*app, error) {
	cfg := config.Load()
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)

	policy := extract.DefaultPolicy()
	if cfg.PolicyPath != "" {
		p, err := extract.LoadPolicy(cfg.PolicyPath)
		if err != nil {
			return nil, err
		}
		policy = p
		logger.Info("Using extraction policy from %s", cfg.PolicyPath)
	}

	registry, err := sites.LoadRegistry(cfg.SitesPath, logger)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, policy: policy, registry: registry}, nil
}

func (a *app) retry() *utils.RetryConfig {
	return &utils.RetryConfig{
		MaxAttempts: a.cfg.MaxRetries,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
		Logger:      a.logger,
	}
}

// fetcher builds the configured page fetcher, with the Redis cache in front
// when REDIS_ADDR is set. The returned func releases browser and cache
// resources.
func (a *app) fetcher(ctx context.Context) (fetch.Fetcher, func(), error) {
	cfg := a.cfg
	var (
		f       fetch.Fetcher
		closers []func()
	)

	switch cfg.FetchMode {
	case config.FetchModeBrowser:
		b := fetch.NewBrowserFetcher(cfg.ChromeBin, cfg.RequestTimeout(), a.logger)
		closers = append(closers, func() { _ = b.Close() })
		f = b
	default:
		p, err := fetch.NewProxyFetcher(fetch.ProxyConfig{
			APIKey:     cfg.ScraperAPIKey,
			Endpoint:   cfg.ScraperAPIEndpoint,
			Timeout:    cfg.RequestTimeout(),
			MaxRetries: cfg.MaxRetries,
		}, a.logger)
		if err != nil {
			return nil, nil, err
		}
		f = p
	}

	f = &fetch.DefaultsFetcher{Next: f, ForceRender: cfg.RenderJS, CountryCode: cfg.CountryCode}

	if cfg.RedisAddr != "" {
		cache := fetch.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL())
		if err := cache.Ping(ctx); err != nil {
			a.logger.Warn("[cache] Redis at %s unavailable, continuing without page cache: %v", cfg.RedisAddr, err)
			_ = cache.Close()
		} else {
			a.logger.Info("[cache] Caching pages in Redis at %s (ttl %s)", cfg.RedisAddr, cfg.CacheTTL())
			closers = append(closers, func() { _ = cache.Close() })
			f = fetch.NewCachedFetcher(f, cache, a.logger)
		}
	}

	return f, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}, nil
}

// openSinks opens every named sink. Sinks that fail to open are logged and
// skipped unless none can be opened.
func (a *app) openSinks(ctx context.Context, names []string) (*storage.MultiWriter, error) {
	var sinks []storage.NamedWriter
	for _, name := range names {
		w, err := a.openSink(ctx, name)
		if err != nil {
			a.logger.Error("Failed to open %s sink: %v", name, err)
			continue
		}
		sinks = append(sinks, storage.NamedWriter{Name: name, Writer: w})
	}
	if len(sinks) == 0 {
		return nil, fmt.Errorf("no output sink could be opened (requested %v)", names)
	}
	return storage.NewMultiWriter(sinks...), nil
}

func (a *app) openSink(ctx context.Context, name string) (storage.ListingWriter, error) {
	cfg := a.cfg
	switch name {
	case "csv":
		return storage.NewCSVWriter(cfg.CSVOutputPath)
	case "xlsx":
		return storage.NewXLSXWriter(cfg.XLSXOutputPath)
	case "postgres":
		return storage.NewPostgresWriter(ctx, cfg.DSN())
	case "mongo":
		return storage.NewMongoWriter(ctx, cfg.MongoURI, cfg.MongoDB)
	case "firestore":
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT is not set")
		}
		return storage.NewFirestoreWriter(ctx, cfg.GCPProject, cfg.FirestoreCollection)
	case "bigquery":
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT is not set")
		}
		return storage.NewBigQueryWriter(ctx, cfg.GCPProject, cfg.BigQueryDataset, cfg.BigQueryTable)
	}
	return nil, fmt.Errorf("unknown sink %q", name)
}

// fetchFrom loads all listings from a database sink. Append-only sinks can
// hold several rows per listing; BigQuery returns the newest first, so the
// keep-first dedup keeps the latest copy.
func (a *app) fetchFrom(ctx context.Context, name string) ([]*models.Listing, error) {
	switch name {
	case "postgres", "mongo", "firestore", "bigquery":
	default:
		return nil, fmt.Errorf("cannot read listings from %q", name)
	}
	w, err := a.openSink(ctx, name)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	listings, err := w.(storage.ListingReader).FetchAll(ctx)
	if err != nil {
		return nil, err
	}
	kept := services.Dedupe(listings)
	if n := len(listings) - len(kept); n > 0 {
		a.logger.Info("[analyze] Dropped %d duplicate rows read from %s", n, name)
	}
	return kept, nil
}
