package sites

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"bizlist-scraper/fetch"
	"bizlist-scraper/utils"
)

func testSiteConfig() SiteConfig {
	return SiteConfig{
		Name:     "testmarket",
		BaseURL:  "https://market.example",
		PageURL:  "https://market.example/fba-for-sale?page={page}",
		MaxPages: 3,
		Selectors: Selectors{
			Card:        []string{".listing-card"},
			Title:       []string{".title"},
			Link:        []string{"a[href*='/listing/']", "a[href]"},
			Price:       []string{".price"},
			Revenue:     []string{".revenue"},
			Profit:      []string{".profit"},
			Description: []string{".desc"},
		},
	}
}

func loadFixture(t *testing.T, name string) *goquery.Document {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestSelectorSiteParsesCards(t *testing.T) {
	s, err := NewSelectorSite(testSiteConfig(), utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewSelectorSite: %v", err)
	}

	raw := s.Parse(loadFixture(t, "marketplace.html"), "https://market.example/fba-for-sale?page=1")
	if len(raw) != 4 {
		t.Fatalf("cards: got %d, want 4", len(raw))
	}

	first := raw[0]
	if first.Title != "Amazon FBA Kitchen Gadgets Brand" {
		t.Errorf("Title: got %q", first.Title)
	}
	if first.URL != "https://market.example/listing/kitchen-gadgets-101" {
		t.Errorf("URL: got %q", first.URL)
	}
	if first.RawPrice != "$1.2M" || first.RawRevenue != "Revenue: $2.4M" || first.RawProfit != "Net Profit: $400K" {
		t.Errorf("financial fields: got %q / %q / %q", first.RawPrice, first.RawRevenue, first.RawProfit)
	}
	if first.Source != "testmarket" {
		t.Errorf("Source: got %q", first.Source)
	}
	if !strings.Contains(first.CardText, "Fulfillment by Amazon") {
		t.Errorf("CardText should hold the card's visible text, got %q", first.CardText)
	}

	promo := raw[3]
	if promo.Title != "Sell Your Business" || promo.URL != "https://market.example/sell-your-business" {
		t.Errorf("promo tile: got %q %q", promo.Title, promo.URL)
	}
}

func TestSelectorSiteLinkFallback(t *testing.T) {
	cfg := testSiteConfig()
	cfg.Selectors.Card = []string{".no-such-card"}
	s, err := NewSelectorSite(cfg, utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("NewSelectorSite: %v", err)
	}

	raw := s.Parse(loadFixture(t, "marketplace.html"), "https://market.example/fba-for-sale?page=1")

	// Two header links plus four grid blocks; the promo tile shares its URL
	// with the header link and collapses into it.
	if len(raw) != 5 {
		t.Fatalf("fallback cards: got %d, want 5", len(raw))
	}

	var sawLogin bool
	for _, r := range raw {
		if r.URL == "https://market.example/login" && r.Title == "Log In" {
			sawLogin = true
		}
	}
	if !sawLogin {
		t.Error("fallback should surface header navigation links for the noise filter to drop")
	}
}

func TestPageURLs(t *testing.T) {
	cfg := testSiteConfig()
	cfg.FirstPageURL = "https://market.example/fba-for-sale"
	s, _ := NewSelectorSite(cfg, utils.NewDiscardLogger())

	got := s.PageURLs(0)
	want := []string{
		"https://market.example/fba-for-sale",
		"https://market.example/fba-for-sale?page=2",
		"https://market.example/fba-for-sale?page=3",
	}
	if strings.Join(got, " ") != strings.Join(want, " ") {
		t.Errorf("PageURLs(0) = %v; want %v", got, want)
	}

	if n := len(s.PageURLs(2)); n != 2 {
		t.Errorf("PageURLs(2): got %d urls, want 2", n)
	}
	if n := len(s.PageURLs(10)); n != 3 {
		t.Errorf("PageURLs(10) should be capped at max_pages: got %d", n)
	}
}

func TestNewSelectorSiteValidates(t *testing.T) {
	if _, err := NewSelectorSite(SiteConfig{Name: "x", PageURL: "https://x.example/list"}, utils.NewDiscardLogger()); err == nil {
		t.Error("expected error for page_url without {page}")
	}
	if _, err := NewSelectorSite(SiteConfig{PageURL: "https://x.example/{page}"}, utils.NewDiscardLogger()); err == nil {
		t.Error("expected error for missing name")
	}
}

func TestDefaultRegistry(t *testing.T) {
	r, err := LoadRegistry("", utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("LoadRegistry: %v", err)
	}
	if n := len(r.Names()); n != 12 {
		t.Errorf("default sites: got %d, want 12", n)
	}

	picked, err := r.Select([]string{"Flippa", "quietlight"})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(picked) != 2 || picked[0].Name() != "flippa" {
		t.Errorf("Select returned %d sites, first %q", len(picked), picked[0].Name())
	}

	all, err := r.Select(nil)
	if err != nil || len(all) != 12 {
		t.Errorf("Select(nil): got %d sites, err %v", len(all), err)
	}

	if _, err := r.Select([]string{"nosuchsite"}); err == nil {
		t.Error("expected error for unknown site")
	}

	flippa, _ := r.Get("flippa")
	if !flippa.FetchOptions().Render {
		t.Error("flippa should request JS rendering")
	}
}

type fixtureFetcher struct {
	body []byte
	got  fetch.Options
}

func (f *fixtureFetcher) Fetch(_ context.Context, _ string, opts fetch.Options) ([]byte, error) {
	f.got = opts
	return f.body, nil
}

func TestScrapePage(t *testing.T) {
	body, err := os.ReadFile(filepath.Join("testdata", "marketplace.html"))
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	cfg := testSiteConfig()
	cfg.Render = true
	cfg.CountryCode = "us"
	s, _ := NewSelectorSite(cfg, utils.NewDiscardLogger())

	f := &fixtureFetcher{body: body}
	raw, err := ScrapePage(context.Background(), f, s, "https://market.example/fba-for-sale?page=1")
	if err != nil {
		t.Fatalf("ScrapePage: %v", err)
	}
	if len(raw) != 4 {
		t.Errorf("cards: got %d, want 4", len(raw))
	}
	if !f.got.Render || f.got.CountryCode != "us" {
		t.Errorf("fetch options not forwarded: %+v", f.got)
	}
}

func TestPageText(t *testing.T) {
	doc := loadFixture(t, "detail.html")
	text := PageText(doc)

	if strings.Contains(text, "$250,000") {
		t.Error("script contents should not leak into page text")
	}
	if strings.Contains(text, "Log In") {
		t.Error("navigation should be stripped from page text")
	}
	if !strings.Contains(text, "Location\nAustin, TX\n") {
		t.Errorf("definition list should keep one value per line, got:\n%s", text)
	}
	if !strings.Contains(text, "Asking Price: $1,200,000\n") {
		t.Errorf("inline elements should stay on their paragraph's line, got:\n%s", text)
	}
}

func TestPageDescription(t *testing.T) {
	got := PageDescription(loadFixture(t, "detail.html"))
	if !strings.HasPrefix(got, "Private label kitchen brand") {
		t.Errorf("PageDescription: got %q", got)
	}
}
