package services

import (
	"bizlist-scraper/extract"
	"bizlist-scraper/models"
	"bizlist-scraper/utils"
)

// Deduper tracks which listings have been seen. A listing is a duplicate
// when its normalised URL matches, or when the same source already produced
// a listing with the same title and the same figures (marketplaces often
// expose one listing under several tracking URLs). Generic titles with
// different figures stay distinct.
type Deduper struct {
	urls   map[string]struct{}
	titles map[string][]*models.Listing
}

// NewDeduper returns an empty Deduper.
func NewDeduper() *Deduper {
	return &Deduper{
		urls:   make(map[string]struct{}),
		titles: make(map[string][]*models.Listing),
	}
}

// Add records l and reports whether it was new. The first listing seen for a
// key always wins.
func (d *Deduper) Add(l *models.Listing) bool {
	urlKey := utils.NormalizeURL(l.URL)
	if _, dup := d.urls[urlKey]; dup {
		return false
	}

	titleKey := ""
	if tk := extract.TitleKey(l.Name); len(tk) >= 8 {
		titleKey = l.Source + "|" + tk
		for _, seen := range d.titles[titleKey] {
			if sameFigures(seen, l) {
				return false
			}
		}
	}

	d.urls[urlKey] = struct{}{}
	if titleKey != "" {
		d.titles[titleKey] = append(d.titles[titleKey], l)
	}
	return true
}

// sameFigures reports whether a and b quote the same non-zero price, or the
// same revenue and profit with at least one of them set.
func sameFigures(a, b *models.Listing) bool {
	if a.Price > 0 && a.Price == b.Price {
		return true
	}
	if a.Revenue == 0 && a.Profit == 0 {
		return false
	}
	return a.Revenue == b.Revenue && a.Profit == b.Profit
}

// Dedupe returns listings with duplicates removed, keeping the first of each.
func Dedupe(listings []*models.Listing) []*models.Listing {
	d := NewDeduper()
	out := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if d.Add(l) {
			out = append(out, l)
		}
	}
	return out
}

// Merge combines listing sets from several runs in order, keeping the first
// occurrence of each listing.
func Merge(runs ...[]*models.Listing) []*models.Listing {
	var all []*models.Listing
	for _, r := range runs {
		all = append(all, r...)
	}
	return Dedupe(all)
}
