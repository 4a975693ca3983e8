package scraper

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"bizlist-scraper/extract"
	"bizlist-scraper/fetch"
	"bizlist-scraper/models"
	"bizlist-scraper/services"
	"bizlist-scraper/sites"
	"bizlist-scraper/utils"
)

// Enricher re-fetches listing detail pages and layers the fields only
// found there onto existing listings. Values already present are kept.
type Enricher struct {
	fetcher   fetch.Fetcher
	policy    *extract.Policy
	extractor *extract.Extractor
	logger    *utils.Logger

	maxConcurrency int
	rateLimitMs    int
	// siteOptions holds per-source fetch options, e.g. JS rendering.
	siteOptions map[string]fetch.Options
}

// NewEnricher creates an Enricher. registry may be nil, in which case every
// detail page is fetched with default options.
func NewEnricher(f fetch.Fetcher, policy *extract.Policy, registry *sites.Registry, maxConcurrency, rateLimitMs int, logger *utils.Logger) *Enricher {
	e := &Enricher{
		fetcher:        f,
		policy:         policy,
		extractor:      extract.NewExtractor(policy),
		logger:         logger,
		maxConcurrency: maxConcurrency,
		rateLimitMs:    rateLimitMs,
		siteOptions:    make(map[string]fetch.Options),
	}
	if registry != nil {
		for _, name := range registry.Names() {
			s, _ := registry.Get(name)
			e.siteOptions[name] = s.FetchOptions()
		}
	}
	return e
}

// EnrichStats summarises an Enrich call.
type EnrichStats struct {
	Attempted int
	Enriched  int
	Failed    int
}

// Enrich updates listings in place. Fetch failures are logged and leave
// the listing untouched. Only jobs that actually ran count as attempted, so
// Attempted never exceeds Enriched plus Failed plus unchanged listings.
func (e *Enricher) Enrich(ctx context.Context, listings []*models.Listing) EnrichStats {
	pool := utils.NewWorkerPool(e.maxConcurrency, e.rateLimitMs)

	var mu sync.Mutex
	stats := EnrichStats{}
	queued := 0

	for _, l := range listings {
		if l.URL == "" {
			continue
		}
		queued++
		pool.Submit(ctx, func() {
			changed, err := e.enrichOne(ctx, l)
			mu.Lock()
			defer mu.Unlock()
			stats.Attempted++
			if err != nil {
				stats.Failed++
				e.logger.With(map[string]any{"source": l.Source, "host": utils.Host(l.URL)}).
					Warnf("[enricher] %s: %v", l.URL, err)
				return
			}
			if changed {
				stats.Enriched++
			}
		})
	}
	pool.Wait()

	if skipped := queued - stats.Attempted; skipped > 0 {
		e.logger.Warn("[enricher] %d listings skipped after cancellation", skipped)
	}
	e.logger.Info("[enricher] Enriched %d of %d listings (%d failed)", stats.Enriched, stats.Attempted, stats.Failed)
	return stats
}

func (e *Enricher) enrichOne(ctx context.Context, l *models.Listing) (bool, error) {
	body, err := e.fetcher.Fetch(ctx, l.URL, e.siteOptions[l.Source])
	if err != nil {
		return false, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("parse detail page: %w", err)
	}

	text := sites.PageText(doc)
	before := *l

	d := e.policy.DetailFields(text)
	if l.Location == "" {
		l.Location = d.Location
	}
	if l.Employees == 0 {
		l.Employees = d.Employees
	}
	if l.EstablishedYear == 0 {
		l.EstablishedYear = d.EstablishedYear
	}
	if l.MonthlyTraffic == 0 {
		l.MonthlyTraffic = d.MonthlyTraffic
	}
	if l.Inventory == "" {
		l.Inventory = d.Inventory
	}
	if l.Description == "" {
		l.Description = e.policy.Truncate(extract.NormaliseText(sites.PageDescription(doc)))
	}

	fin := e.extractor.ExtractAll(text)
	if l.Price == 0 {
		l.Price = fin.Price
	}
	if l.Revenue == 0 {
		l.Revenue = fin.Revenue
	}
	if l.Profit == 0 {
		l.Profit = fin.Profit
	}

	services.Derive(e.policy, l, text)
	return *l != before, nil
}
