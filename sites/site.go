// Package sites models each marketplace as data: a page URL template plus
// ordered CSS selector lists. One generic implementation parses them all.
package sites

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"bizlist-scraper/extract"
	"bizlist-scraper/fetch"
	"bizlist-scraper/models"
	"bizlist-scraper/utils"
)

// Site is one marketplace.
type Site interface {
	Name() string
	PageURLs(maxPages int) []string
	FetchOptions() fetch.Options
	Parse(doc *goquery.Document, pageURL string) []*models.RawListing
}

// Selectors are tried in order; the first one that matches wins.
type Selectors struct {
	Card        []string `json:"card"`
	Title       []string `json:"title"`
	Link        []string `json:"link"`
	Price       []string `json:"price"`
	Revenue     []string `json:"revenue"`
	Profit      []string `json:"profit"`
	Description []string `json:"description"`
}

// SiteConfig describes a marketplace. PageURL must contain "{page}".
// FirstPageURL, when set, replaces page 1 for sites whose first page has no
// page suffix.
type SiteConfig struct {
	Name         string    `json:"name"`
	BaseURL      string    `json:"base_url"`
	FirstPageURL string    `json:"first_page_url"`
	PageURL      string    `json:"page_url"`
	MaxPages     int       `json:"max_pages"`
	Render       bool      `json:"render"`
	CountryCode  string    `json:"country_code"`
	Selectors    Selectors `json:"selectors"`
}

// SelectorSite is the generic, config-driven Site.
type SelectorSite struct {
	cfg    SiteConfig
	logger *utils.Logger
}

// NewSelectorSite validates cfg and returns a Site.
func NewSelectorSite(cfg SiteConfig, logger *utils.Logger) (*SelectorSite, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("sites: config without name")
	}
	if !strings.Contains(cfg.PageURL, "{page}") {
		return nil, fmt.Errorf("sites: %s: page_url must contain {page}", cfg.Name)
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	return &SelectorSite{cfg: cfg, logger: logger}, nil
}

func (s *SelectorSite) Name() string { return s.cfg.Name }

// Config returns a copy of the site configuration.
func (s *SelectorSite) Config() SiteConfig { return s.cfg }

// PageURLs returns the listing pages to visit, capped by the site's own
// max_pages. A maxPages of 0 means the site default.
func (s *SelectorSite) PageURLs(maxPages int) []string {
	n := s.cfg.MaxPages
	if maxPages > 0 && maxPages < n {
		n = maxPages
	}

	urls := make([]string, 0, n)
	for page := 1; page <= n; page++ {
		if page == 1 && s.cfg.FirstPageURL != "" {
			urls = append(urls, s.cfg.FirstPageURL)
			continue
		}
		urls = append(urls, strings.ReplaceAll(s.cfg.PageURL, "{page}", strconv.Itoa(page)))
	}
	return urls
}

func (s *SelectorSite) FetchOptions() fetch.Options {
	return fetch.Options{Render: s.cfg.Render, CountryCode: s.cfg.CountryCode}
}

// Parse extracts raw listing cards from a page. When no card selector
// matches, it falls back to treating every link's enclosing block as a card;
// the cleaner's noise filter then sorts listings from navigation.
func (s *SelectorSite) Parse(doc *goquery.Document, pageURL string) []*models.RawListing {
	cards := firstMatch(doc.Selection, s.cfg.Selectors.Card)
	if cards == nil {
		s.logger.Debug("[%s] no card selector matched on %s, using link fallback", s.cfg.Name, pageURL)
		cards = linkBlocks(doc)
	}

	now := time.Now()
	seen := make(map[string]struct{})
	var out []*models.RawListing

	cards.Each(func(i int, card *goquery.Selection) {
		raw, err := s.parseCard(card, pageURL)
		if err != nil {
			s.logger.Debug("[%s] card %d skipped: %v", s.cfg.Name, i, err)
			return
		}
		if raw.URL == "" {
			return
		}
		key := utils.NormalizeURL(raw.URL)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}

		raw.Source = s.cfg.Name
		raw.ScrapedAt = now
		out = append(out, raw)
	})

	s.logger.Debug("[%s] %s: %d cards", s.cfg.Name, pageURL, len(out))
	return out
}

// parseCard never lets a malformed fragment abort the page.
func (s *SelectorSite) parseCard(card *goquery.Selection, pageURL string) (raw *models.RawListing, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse panic: %v", r)
		}
	}()

	sel := s.cfg.Selectors
	raw = &models.RawListing{
		Title:       firstText(card, sel.Title),
		RawPrice:    firstText(card, sel.Price),
		RawRevenue:  firstText(card, sel.Revenue),
		RawProfit:   firstText(card, sel.Profit),
		Description: firstText(card, sel.Description),
		CardText:    extract.NormaliseText(card.Text()),
	}

	href := firstAttr(card, sel.Link, "href")
	if href == "" && goquery.NodeName(card) == "a" {
		href, _ = card.Attr("href")
	}
	base := pageURL
	if s.cfg.BaseURL != "" && strings.HasPrefix(href, "/") {
		base = s.cfg.BaseURL
	}
	raw.URL = utils.AbsoluteURL(base, href)

	if raw.Title == "" {
		raw.Title = firstText(card, []string{"h1", "h2", "h3", "h4", "a[href]"})
	}
	if raw.Title == "" && goquery.NodeName(card) == "a" {
		raw.Title = extract.NormaliseText(card.Text())
	}
	return raw, nil
}

// ScrapePage fetches one listing page and parses it.
func ScrapePage(ctx context.Context, f fetch.Fetcher, site Site, pageURL string) ([]*models.RawListing, error) {
	body, err := f.Fetch(ctx, pageURL, site.FetchOptions())
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sites: parse %s: %w", pageURL, err)
	}
	return site.Parse(doc, pageURL), nil
}

func firstMatch(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if found := root.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}

func firstText(root *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		var text string
		root.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text = extract.NormaliseText(s.Text())
			return text == ""
		})
		if text != "" {
			return text
		}
	}
	return ""
}

func firstAttr(root *goquery.Selection, selectors []string, attr string) string {
	for _, sel := range selectors {
		if v, ok := root.Find(sel).First().Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// linkBlocks returns the closest block-level ancestor of every link.
func linkBlocks(doc *goquery.Document) *goquery.Selection {
	blocks := doc.Selection.Slice(0, 0)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		block := a.Closest("article, li, tr, div")
		if block.Length() == 0 {
			block = a
		}
		blocks = blocks.AddSelection(block)
	})
	return blocks
}
