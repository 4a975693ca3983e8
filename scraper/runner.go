package scraper

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"bizlist-scraper/fetch"
	"bizlist-scraper/models"
	"bizlist-scraper/sites"
	"bizlist-scraper/utils"
)

// Options tune a scrape run.
type Options struct {
	// MaxPages caps pages per site; 0 uses each site's own limit.
	MaxPages int
	// MaxListings stops the run once this many raw cards are collected; 0
	// means no limit.
	MaxListings    int
	MaxConcurrency int
	RateLimitMs    int
	// Progress receives the progress bar; nil disables it.
	Progress io.Writer
}

// Runner drives listing-page scraping across sites.
type Runner struct {
	fetcher fetch.Fetcher
	opts    Options
	logger  *utils.Logger
	// Retry wraps each page fetch when set. The proxy fetcher retries on
	// its own, so this is only needed for the browser fetcher.
	Retry *utils.RetryConfig

	runID   string
	visited *utils.URLSet
}

// NewRunner creates a Runner with a fresh run ID.
func NewRunner(f fetch.Fetcher, opts Options, logger *utils.Logger) *Runner {
	return &Runner{
		fetcher: f,
		opts:    opts,
		logger:  logger,
		runID:   uuid.New().String(),
		visited: utils.NewURLSet(),
	}
}

// RunID identifies this run on every listing it produces.
func (r *Runner) RunID() string { return r.runID }

type pageJob struct {
	site sites.Site
	url  string
	slot int
}

// Run scrapes every page of every site and returns raw cards in site and
// page order. Page failures are logged and skipped; the only error is a
// cancelled context with nothing collected.
func (r *Runner) Run(ctx context.Context, targets []sites.Site) ([]*models.RawListing, error) {
	var jobs []pageJob
	for _, s := range targets {
		for _, u := range s.PageURLs(r.opts.MaxPages) {
			if !r.visited.Add(u) {
				r.logger.Debug("[runner] Skipping already visited page %s", u)
				continue
			}
			jobs = append(jobs, pageJob{site: s, url: u, slot: len(jobs)})
		}
	}
	r.logger.Info("[runner] Run %s: %d sites, %d pages, concurrency %d, rate %dms",
		r.runID, len(targets), len(jobs), r.opts.MaxConcurrency, r.opts.RateLimitMs)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	bar := r.newBar(len(jobs))
	pool := utils.NewWorkerPool(r.opts.MaxConcurrency, r.opts.RateLimitMs)

	var (
		mu        sync.Mutex
		results   = make([][]*models.RawListing, len(jobs))
		collected int
		failed    int
	)

	for _, job := range jobs {
		pool.Submit(runCtx, func() {
			defer bar.Add(1)

			raw, err := r.scrapePage(runCtx, job)
			if err != nil {
				if runCtx.Err() == nil {
					r.logger.Warn("[runner] %s: page %s failed: %v", job.site.Name(), job.url, err)
				}
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}

			now := time.Now()
			for _, l := range raw {
				l.RunID = r.runID
				l.ScrapedAt = now
			}

			mu.Lock()
			results[job.slot] = raw
			collected += len(raw)
			reached := r.opts.MaxListings > 0 && collected >= r.opts.MaxListings
			mu.Unlock()

			r.logger.Debug("[runner] %s: %d cards from %s", job.site.Name(), len(raw), job.url)
			if reached {
				r.logger.Info("[runner] Reached max listings (%d), stopping", r.opts.MaxListings)
				stop()
			}
		})
	}
	pool.Wait()
	_ = bar.Finish()

	var all []*models.RawListing
	for _, page := range results {
		all = append(all, page...)
	}
	if r.opts.MaxListings > 0 && len(all) > r.opts.MaxListings {
		all = all[:r.opts.MaxListings]
	}

	r.logger.Info("[runner] Run %s complete: %d raw cards, %d pages failed", r.runID, len(all), failed)
	if len(all) == 0 && ctx.Err() != nil {
		return nil, fmt.Errorf("runner: %w", ctx.Err())
	}
	return all, nil
}

func (r *Runner) scrapePage(ctx context.Context, job pageJob) ([]*models.RawListing, error) {
	if r.Retry == nil {
		return sites.ScrapePage(ctx, r.fetcher, job.site, job.url)
	}
	var raw []*models.RawListing
	err := r.Retry.Do(ctx, "scrape "+job.url, func() error {
		var err error
		raw, err = sites.ScrapePage(ctx, r.fetcher, job.site, job.url)
		return err
	})
	return raw, err
}

func (r *Runner) newBar(total int) *progressbar.ProgressBar {
	if r.opts.Progress == nil {
		return progressbar.DefaultSilent(int64(total))
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.opts.Progress),
		progressbar.OptionSetDescription("Scraping pages"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionSetWidth(40),
		progressbar.OptionClearOnFinish(),
	)
}
