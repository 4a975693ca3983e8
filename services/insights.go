package services

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"bizlist-scraper/extract"
	"bizlist-scraper/models"
	"bizlist-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
	out    io.Writer
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

// Filter keeps listings from source (empty = any) scoring at least
// minQuality.
func (s *InsightService) Filter(listings []*models.Listing, source string, minQuality int) []*models.Listing {
	source = strings.ToLower(strings.TrimSpace(source))
	out := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if source != "" && l.Source != source {
			continue
		}
		if l.Quality < minQuality {
			continue
		}
		out = append(out, l)
	}
	s.logger.Debug("[insights] filter source=%q quality>=%d: %d → %d", source, minQuality, len(listings), len(out))
	return out
}

func (s *InsightService) Generate(listings []*models.Listing) *models.InsightReport {
	report := &models.InsightReport{
		ByCategory: make(map[string]int),
	}

	if len(listings) == 0 {
		return report
	}

	report.TotalListings = len(listings)

	var prices, multiples []float64
	var priced, deals []*models.Listing
	bySource := make(map[string]*models.SourceStat)
	sourcePriceSum := make(map[string]float64)
	sourcePriced := make(map[string]int)

	for _, l := range listings {
		st, ok := bySource[l.Source]
		if !ok {
			st = &models.SourceStat{Source: l.Source}
			bySource[l.Source] = st
		}
		st.Listings++

		if l.IsFBA {
			report.FBAListings++
			st.FBAListings++
		}
		if l.Price > 0 {
			priced = append(priced, l)
			prices = append(prices, l.Price)
			sourcePriceSum[l.Source] += l.Price
			sourcePriced[l.Source]++
		}
		if l.Multiple > 0 {
			multiples = append(multiples, l.Multiple)
			deals = append(deals, l)
		}
		if l.Category != "" {
			report.ByCategory[l.Category]++
		}
	}

	// Price stats (only listings with price > 0)
	report.PricedListings = len(priced)
	if len(priced) > 0 {
		report.MinPrice = priced[0].Price
		report.MaxPrice = priced[0].Price
		report.MostExpensive = priced[0]
		var total float64
		for _, l := range priced {
			total += l.Price
			if l.Price < report.MinPrice {
				report.MinPrice = l.Price
			}
			if l.Price > report.MaxPrice {
				report.MaxPrice = l.Price
				report.MostExpensive = l
			}
		}
		report.AveragePrice = round2(total / float64(len(priced)))
		report.MedianPrice = round2(median(prices))
	}
	report.MedianMultiple = round2(median(multiples))

	// Best deals: lowest multiples, FBA listings first when there are any.
	fbaDeals := deals[:0:0]
	for _, l := range deals {
		if l.IsFBA {
			fbaDeals = append(fbaDeals, l)
		}
	}
	if len(fbaDeals) > 0 {
		deals = fbaDeals
	}
	sort.SliceStable(deals, func(i, j int) bool {
		return deals[i].Multiple < deals[j].Multiple
	})
	if len(deals) > 5 {
		deals = deals[:5]
	}
	report.BestDeals = deals

	for src, st := range bySource {
		if n := sourcePriced[src]; n > 0 {
			st.AveragePrice = round2(sourcePriceSum[src] / float64(n))
		}
		report.BySource = append(report.BySource, *st)
	}
	sort.Slice(report.BySource, func(i, j int) bool {
		if report.BySource[i].Listings != report.BySource[j].Listings {
			return report.BySource[i].Listings > report.BySource[j].Listings
		}
		return report.BySource[i].Source < report.BySource[j].Source
	})

	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	w := s.out
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  BUSINESS-FOR-SALE LISTING INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Total listings   : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Fprintf(w, "  Amazon FBA       : \033[1m%d\033[0m\n", r.FBAListings)
	fmt.Fprintf(w, "  With asking price: \033[1m%d\033[0m\n", r.PricedListings)
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Asking Price\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Fprintf(w, "  Average : \033[1;32m%s\033[0m\n", money(r.AveragePrice))
		fmt.Fprintf(w, "  Median  : \033[1;32m%s\033[0m\n", money(r.MedianPrice))
		fmt.Fprintf(w, "  Minimum : \033[1;32m%s\033[0m\n", money(r.MinPrice))
		fmt.Fprintf(w, "  Maximum : \033[1;32m%s\033[0m\n", money(r.MaxPrice))
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	if r.MedianMultiple > 0 {
		fmt.Fprintf(w, "  Median multiple : \033[1m%.2fx\033[0m\n", r.MedianMultiple)
	}
	fmt.Fprintln(w)

	if r.MostExpensive != nil {
		fmt.Fprintf(w, "\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s\n", truncate(r.MostExpensive.Name, 56))
		fmt.Fprintf(w, "  Source : %s\n", r.MostExpensive.Source)
		fmt.Fprintf(w, "  Price  : \033[1;31m%s\033[0m\n", money(r.MostExpensive.Price))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "\033[1;33m  Lowest Multiples\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.BestDeals) == 0 {
		fmt.Fprintf(w, "  No listings with a computable multiple\n")
	} else {
		for i, l := range r.BestDeals {
			fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s \033[1;32m%5.2fx\033[0m %s\n",
				i+1, truncate(l.Name, 38), l.Multiple, l.MultipleBasis)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings by Source\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.BySource) == 0 {
		fmt.Fprintf(w, "  No source data\n")
	} else {
		for _, st := range r.BySource {
			bar := strings.Repeat("█", min(st.Listings, 30))
			fmt.Fprintf(w, "  %-20s %s (%d, %d FBA)\n", truncate(st.Source, 18), bar, st.Listings, st.FBAListings)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Listings by Category\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	cats := make([]string, 0, len(r.ByCategory))
	for c := range r.ByCategory {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		return r.ByCategory[cats[i]] > r.ByCategory[cats[j]]
	})
	for _, c := range cats {
		fmt.Fprintf(w, "  %-20s %d\n", c, r.ByCategory[c])
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func money(v float64) string {
	if s := extract.FormatUSD(v); s != "" {
		return s
	}
	return "$0"
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
