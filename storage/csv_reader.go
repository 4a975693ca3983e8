package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"bizlist-scraper/extract"
	"bizlist-scraper/models"
)

// ReadListingsCSV loads a cleaned-listing CSV written by CSVWriter. Columns
// are matched by header name, so files from older runs with fewer columns
// still load; missing fields stay zero.
func ReadListingsCSV(path string) ([]*models.Listing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()
	return readListings(f)
}

func readListings(r io.Reader) ([]*models.Listing, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["url"]; !ok {
		return nil, fmt.Errorf("csv: missing url column")
	}

	var listings []*models.Listing
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}

		get := func(name string) string {
			if i, ok := cols[name]; ok && i < len(rec) {
				return strings.TrimSpace(rec[i])
			}
			return ""
		}

		l := &models.Listing{
			Source:        get("source"),
			Name:          get("name"),
			URL:           get("url"),
			Price:         amount(get("price")),
			Revenue:       amount(get("revenue")),
			Profit:        amount(get("profit")),
			MultipleBasis: get("multiple_basis"),
			Category:      get("category"),
			Description:   get("description"),
			Location:      get("location"),
			Inventory:     get("inventory"),
			RunID:         get("run_id"),
		}
		if l.Name == "" {
			l.Name = get("title")
		}
		l.PriceText = extract.FormatUSD(l.Price)
		l.RevenueText = extract.FormatUSD(l.Revenue)
		l.ProfitText = extract.FormatUSD(l.Profit)
		l.Multiple, _ = strconv.ParseFloat(get("multiple"), 64)
		l.IsFBA, _ = strconv.ParseBool(get("is_fba"))
		l.Quality, _ = strconv.Atoi(get("quality"))
		l.Employees, _ = strconv.Atoi(get("employees"))
		l.EstablishedYear, _ = strconv.Atoi(get("established_year"))
		l.MonthlyTraffic, _ = strconv.ParseInt(get("monthly_traffic"), 10, 64)
		if ts := get("scraped_at"); ts != "" {
			l.ScrapedAt, _ = time.Parse(time.RFC3339, ts)
		}

		if l.URL == "" {
			continue
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func amount(s string) float64 {
	v, ok := extract.ParseAmount(s)
	if !ok {
		return 0
	}
	return v
}
