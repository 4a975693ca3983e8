package services

import (
	"strings"
	"time"

	"bizlist-scraper/extract"
	"bizlist-scraper/models"
	"bizlist-scraper/utils"
)

// Cleaner transforms RawListings into clean, validated Listings.
type Cleaner struct {
	logger    *utils.Logger
	extractor *extract.Extractor
	policy    *extract.Policy
}

// NewCleaner creates a Cleaner enforcing policy.
func NewCleaner(policy *extract.Policy, logger *utils.Logger) *Cleaner {
	return &Cleaner{
		logger:    logger,
		extractor: extract.NewExtractor(policy),
		policy:    policy,
	}
}

// CleanStats counts why raw cards were dropped.
type CleanStats struct {
	Input        int
	Kept         int
	EmptyURL     int
	Noise        int
	NoFinancials int
	Duplicates   int
}

// Clean processes raw listings and returns cleaned records. Duplicates are
// resolved keep-first, so callers control precedence by input order.
func (c *Cleaner) Clean(raw []*models.RawListing) []*models.Listing {
	listings, _ := c.CleanWithStats(raw)
	return listings
}

// CleanWithStats is Clean plus a breakdown of dropped cards.
func (c *Cleaner) CleanWithStats(raw []*models.RawListing) ([]*models.Listing, CleanStats) {
	stats := CleanStats{Input: len(raw)}
	dedup := NewDeduper()
	result := make([]*models.Listing, 0, len(raw))

	for _, r := range raw {
		url := strings.TrimSpace(r.URL)
		if url == "" {
			c.logger.Warn("[cleaner] Dropping listing with empty URL: %s", r.Title)
			stats.EmptyURL++
			continue
		}

		title := extract.NormaliseText(r.Title)
		if c.policy.IsNoise(title, url) {
			c.logger.Debug("[cleaner] Navigation/noise skipped: %q %s", title, url)
			stats.Noise++
			continue
		}

		listing := c.build(r, title, url)
		if !listing.HasFinancials() {
			c.logger.Debug("[cleaner] No usable financials: %s", url)
			stats.NoFinancials++
			continue
		}

		if !dedup.Add(listing) {
			c.logger.Debug("[cleaner] Duplicate skipped: %s", url)
			stats.Duplicates++
			continue
		}
		result = append(result, listing)
	}

	stats.Kept = len(result)
	c.logger.Info("[cleaner] Cleaned %d → %d listings (dropped: %d no-url, %d noise, %d no-financials, %d duplicates)",
		stats.Input, stats.Kept, stats.EmptyURL, stats.Noise, stats.NoFinancials, stats.Duplicates)
	return result, stats
}

func (c *Cleaner) build(r *models.RawListing, title, url string) *models.Listing {
	cardText := extract.NormaliseText(r.CardText)
	if cardText == "" {
		cardText = strings.Join([]string{r.Title, r.RawPrice, r.RawRevenue, r.RawProfit, r.Description}, " ")
	}

	l := &models.Listing{
		Source:      strings.ToLower(strings.TrimSpace(r.Source)),
		Name:        title,
		URL:         url,
		Price:       c.extractor.Field(extract.FieldPrice, r.RawPrice, cardText),
		Revenue:     c.extractor.Field(extract.FieldRevenue, r.RawRevenue, cardText),
		Profit:      c.extractor.Field(extract.FieldProfit, r.RawProfit, cardText),
		Description: c.policy.Truncate(extract.NormaliseText(r.Description)),
		RunID:       r.RunID,
		ScrapedAt:   r.ScrapedAt,
	}
	if l.ScrapedAt.IsZero() {
		l.ScrapedAt = time.Now()
	}

	Derive(c.policy, l, cardText)
	return l
}

// Derive recomputes the display strings, multiple, FBA flag, category and
// quality score from a listing's current fields. extra is any additional
// text (card or page text) to classify on.
func Derive(policy *extract.Policy, l *models.Listing, extra string) {
	l.PriceText = extract.FormatUSD(l.Price)
	l.RevenueText = extract.FormatUSD(l.Revenue)
	l.ProfitText = extract.FormatUSD(l.Profit)
	l.Multiple, l.MultipleBasis = extract.Multiple(l.Price, l.Revenue, l.Profit)

	text := l.Name + " " + l.Description + " " + extra
	l.IsFBA = l.IsFBA || policy.IsFBA(text)
	if l.Category == "" || l.Category == "other" {
		l.Category = policy.Category(text)
	}
	l.Quality = Quality(l)
}

// Quality scores how complete a listing is, 0–100.
func Quality(l *models.Listing) int {
	score := 0
	if l.Name != "" {
		score += 15
	}
	if l.URL != "" {
		score += 10
	}
	if l.Price > 0 {
		score += 25
	}
	if l.Revenue > 0 {
		score += 20
	}
	if l.Profit > 0 {
		score += 20
	}
	if l.Description != "" {
		score += 5
	}
	if l.Location != "" || l.EstablishedYear > 0 || l.Employees > 0 || l.MonthlyTraffic > 0 {
		score += 5
	}
	return score
}
