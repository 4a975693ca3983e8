package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"bizlist-scraper/models"
	"bizlist-scraper/utils"
)

func sampleListing() *models.Listing {
	return &models.Listing{
		Source:          "flippa",
		Name:            "Amazon FBA Kitchen Brand, \"Premium\"",
		URL:             "https://flippa.com/listing/1",
		Price:           1200000,
		Revenue:         2400000,
		Profit:          400000,
		PriceText:       "$1,200,000",
		RevenueText:     "$2,400,000",
		ProfitText:      "$400,000",
		Multiple:        3,
		MultipleBasis:   "profit",
		Description:     "Private label kitchen tools,\nsold via FBA.",
		IsFBA:           true,
		Category:        "amazon_fba",
		Quality:         95,
		Location:        "Austin, TX",
		EstablishedYear: 2017,
		Employees:       4,
		RunID:           "run-1",
		ScrapedAt:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "clean.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	want := sampleListing()
	if err := w.Write(context.Background(), []*models.Listing{want}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := ReadListingsCSV(path)
	if err != nil {
		t.Fatalf("ReadListingsCSV: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows: got %d, want 1", len(got))
	}
	l := got[0]
	if l.Name != want.Name || l.Description != want.Description {
		t.Errorf("text fields not preserved: %q / %q", l.Name, l.Description)
	}
	if l.Price != want.Price || l.Revenue != want.Revenue || l.Profit != want.Profit {
		t.Errorf("financials: got %.0f / %.0f / %.0f", l.Price, l.Revenue, l.Profit)
	}
	if l.PriceText != "$1,200,000" || l.Multiple != 3 || !l.IsFBA || l.Quality != 95 {
		t.Errorf("derived fields: %+v", l)
	}
	if l.EstablishedYear != 2017 || l.Employees != 4 || l.Location != "Austin, TX" {
		t.Errorf("detail fields: %+v", l)
	}
	if !l.ScrapedAt.Equal(want.ScrapedAt) {
		t.Errorf("ScrapedAt: got %v, want %v", l.ScrapedAt, want.ScrapedAt)
	}
}

func TestReadListingsToleratesPartialColumns(t *testing.T) {
	in := "url,title,price\nhttps://a.example/1,Old Brand,\"$95,000\"\n,No URL,$1\n"
	got, err := readListings(strings.NewReader(in))
	if err != nil {
		t.Fatalf("readListings: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("rows: got %d, want 1", len(got))
	}
	if got[0].Name != "Old Brand" || got[0].Price != 95000 {
		t.Errorf("got %+v", got[0])
	}
}

func TestReadListingsRequiresURLColumn(t *testing.T) {
	if _, err := readListings(strings.NewReader("name,price\nA,$1\n")); err == nil {
		t.Error("expected error for missing url column")
	}
}

func TestRawCSVWriterWritesEveryRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.csv")
	w, err := NewRawCSVWriter(path)
	if err != nil {
		t.Fatalf("NewRawCSVWriter: %v", err)
	}
	var raw []*models.RawListing
	for i := 0; i < 25; i++ {
		raw = append(raw, &models.RawListing{Source: "x", Title: "T", URL: "https://x.example/" + string(rune('a'+i))})
	}
	if err := w.WriteRaw(raw); err != nil {
		t.Fatalf("WriteRaw: %v", err)
	}
	_ = w.Close()

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 26 {
		t.Errorf("lines: got %d, want 26 (header + 25)", len(lines))
	}
	if !strings.HasPrefix(lines[0], "source,title,url,raw_price") {
		t.Errorf("header: got %q", lines[0])
	}
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.xlsx")
	w, err := NewXLSXWriter(path)
	if err != nil {
		t.Fatalf("NewXLSXWriter: %v", err)
	}
	if err := w.Write(context.Background(), []*models.Listing{sampleListing()}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows(xlsxSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows: got %d, want 2", len(rows))
	}
	if rows[0][0] != "source" || rows[1][2] != "https://flippa.com/listing/1" {
		t.Errorf("unexpected cells: %v / %v", rows[0], rows[1])
	}
	if rows[1][3] != "1200000" {
		t.Errorf("price cell: got %q, want numeric 1200000", rows[1][3])
	}
}

func TestDocIDNormalisesURL(t *testing.T) {
	a := DocID("https://Flippa.com/listing/1/")
	b := DocID("https://flippa.com/listing/1#details")
	if a != b {
		t.Errorf("DocID should ignore case, trailing slash and fragment: %s vs %s", a, b)
	}
	if len(a) != 40 || strings.Contains(a, "/") {
		t.Errorf("DocID should be a 40-char hex digest, got %q", a)
	}
}

type memorySink struct {
	stored []*models.Listing
	err    error
	closed bool
}

func (m *memorySink) Write(_ context.Context, listings []*models.Listing) error {
	if m.err != nil {
		return m.err
	}
	m.stored = append(m.stored, listings...)
	return nil
}

func (m *memorySink) Close() error { m.closed = true; return nil }

func (m *memorySink) FetchAll(context.Context) ([]*models.Listing, error) {
	return m.stored, m.err
}

func TestMultiWriterFansOut(t *testing.T) {
	ok := &memorySink{}
	bad := &memorySink{err: errors.New("boom")}
	mw := NewMultiWriter(NamedWriter{"ok", ok}, NamedWriter{"bad", bad})

	err := mw.Write(context.Background(), []*models.Listing{sampleListing()})
	if err == nil || !strings.Contains(err.Error(), "bad: boom") {
		t.Errorf("expected error naming the failing sink, got %v", err)
	}
	if len(ok.stored) != 1 {
		t.Errorf("healthy sink should still receive the write, got %d", len(ok.stored))
	}

	if err := mw.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if !ok.closed || !bad.closed {
		t.Error("Close should close every sink")
	}
}

func TestMigrateSkipsDocumentsWithoutURL(t *testing.T) {
	src := &memorySink{stored: []*models.Listing{sampleListing(), {Name: "orphan"}}}
	dst := &memorySink{}

	n, err := Migrate(context.Background(), src, dst, utils.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if n != 1 || len(dst.stored) != 1 {
		t.Errorf("migrated: got %d (stored %d), want 1", n, len(dst.stored))
	}
}

func TestBigQueryReadsLatestRowPerURL(t *testing.T) {
	q := latestRowsQuery("proj", "bizlist", "listings")
	for _, want := range []string{
		"`proj.bizlist.listings`",
		"PARTITION BY url ORDER BY scraped_at DESC) = 1",
		"ORDER BY scraped_at DESC",
	} {
		if !strings.Contains(q, want) {
			t.Errorf("query %q missing %q", q, want)
		}
	}
}
