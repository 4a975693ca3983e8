package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"bizlist-scraper/models"
)

var rawHeader = []string{
	"source", "title", "url", "raw_price", "raw_revenue", "raw_profit",
	"description", "card_text", "scraped_at", "run_id",
}

var listingHeader = []string{
	"source", "name", "url", "price", "revenue", "profit",
	"multiple", "multiple_basis", "is_fba", "category", "quality",
	"description", "location", "employees", "established_year",
	"monthly_traffic", "inventory", "run_id", "scraped_at",
}

func listingRow(l *models.Listing) []string {
	return []string{
		l.Source,
		l.Name,
		l.URL,
		l.PriceText,
		l.RevenueText,
		l.ProfitText,
		formatFloat(l.Multiple),
		l.MultipleBasis,
		strconv.FormatBool(l.IsFBA),
		l.Category,
		strconv.Itoa(l.Quality),
		l.Description,
		l.Location,
		formatInt(int64(l.Employees)),
		formatInt(int64(l.EstablishedYear)),
		formatInt(l.MonthlyTraffic),
		l.Inventory,
		l.RunID,
		l.ScrapedAt.Format(time.RFC3339),
	}
}

func formatFloat(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatInt(v int64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatInt(v, 10)
}

// CSVWriter writes listings to a CSV file. It is safe for concurrent use.
// Depending on how it is used it holds raw cards (WriteRaw) or cleaned
// listings (Write); the header is chosen at construction.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewRawCSVWriter creates (or truncates) a raw-card CSV at path.
// Intermediate directories are created automatically.
func NewRawCSVWriter(path string) (*CSVWriter, error) {
	return newCSVWriter(path, rawHeader)
}

// NewCSVWriter creates (or truncates) a cleaned-listing CSV at path.
func NewCSVWriter(path string) (*CSVWriter, error) {
	return newCSVWriter(path, listingHeader)
}

func newCSVWriter(path string, header []string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// WriteRaw appends raw cards exactly as scraped.
func (c *CSVWriter) WriteRaw(listings []*models.RawListing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		row := []string{
			l.Source,
			l.Title,
			l.URL,
			l.RawPrice,
			l.RawRevenue,
			l.RawProfit,
			l.Description,
			l.CardText,
			l.ScrapedAt.Format(time.RFC3339),
			l.RunID,
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Write appends cleaned listings.
func (c *CSVWriter) Write(_ context.Context, listings []*models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		if err := c.writer.Write(listingRow(l)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
