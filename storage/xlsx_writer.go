package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"

	"bizlist-scraper/models"
)

const xlsxSheet = "Listings"

// XLSXWriter streams cleaned listings into a single-sheet workbook. The
// file is only written on Close.
type XLSXWriter struct {
	mu   sync.Mutex
	path string
	file *excelize.File
	sw   *excelize.StreamWriter
	row  int
}

func NewXLSXWriter(path string) (*XLSXWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("xlsx: create output dir: %w", err)
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return nil, fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	sw, err := f.NewStreamWriter(xlsxSheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: stream writer: %w", err)
	}

	header := make([]interface{}, len(listingHeader))
	for i, h := range listingHeader {
		header[i] = h
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("xlsx: write header: %w", err)
	}

	return &XLSXWriter{path: path, file: f, sw: sw, row: 2}, nil
}

// Write appends listings. Financial columns are written as numbers so the
// sheet can be sorted and summed.
func (x *XLSXWriter) Write(_ context.Context, listings []*models.Listing) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, l := range listings {
		cells := listingRow(l)
		row := make([]interface{}, len(cells))
		for i, c := range cells {
			row[i] = c
		}
		row[3] = numberOrBlank(l.Price)
		row[4] = numberOrBlank(l.Revenue)
		row[5] = numberOrBlank(l.Profit)
		row[6] = numberOrBlank(l.Multiple)

		cell, _ := excelize.CoordinatesToCellName(1, x.row)
		if err := x.sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("xlsx: write row %d: %w", x.row, err)
		}
		x.row++
	}
	return nil
}

func numberOrBlank(v float64) interface{} {
	if v == 0 {
		return ""
	}
	return v
}

// Close flushes the stream and saves the workbook.
func (x *XLSXWriter) Close() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if err := x.sw.Flush(); err != nil {
		return fmt.Errorf("xlsx: flush: %w", err)
	}
	if err := x.file.SaveAs(x.path); err != nil {
		return fmt.Errorf("xlsx: save %q: %w", x.path, err)
	}
	return x.file.Close()
}
