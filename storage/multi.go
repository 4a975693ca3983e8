package storage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"bizlist-scraper/models"
)

// NamedWriter pairs a sink with the name used in logs and errors.
type NamedWriter struct {
	Name   string
	Writer ListingWriter
}

// MultiWriter fans a write out to several sinks concurrently. A failing
// sink does not stop the others; every error is reported.
type MultiWriter struct {
	sinks []NamedWriter
}

func NewMultiWriter(sinks ...NamedWriter) *MultiWriter {
	return &MultiWriter{sinks: sinks}
}

// Len reports the number of configured sinks.
func (m *MultiWriter) Len() int { return len(m.sinks) }

func (m *MultiWriter) Write(ctx context.Context, listings []*models.Listing) error {
	var g errgroup.Group
	errs := make([]error, len(m.sinks))
	for i, s := range m.sinks {
		g.Go(func() error {
			if err := s.Writer.Write(ctx, listings); err != nil {
				errs[i] = fmt.Errorf("%s: %w", s.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Close closes every sink and joins their errors.
func (m *MultiWriter) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: close: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
