package storage

import (
	"context"

	"bizlist-scraper/models"
)

// ListingWriter is the interface any storage backend must satisfy.
type ListingWriter interface {
	Write(ctx context.Context, listings []*models.Listing) error
	Close() error
}

// RawListingWriter is the interface for persisting unprocessed scraped data.
type RawListingWriter interface {
	WriteRaw(listings []*models.RawListing) error
	Close() error
}

// ListingReader loads previously stored listings back, for analysis and
// for migrating between backends.
type ListingReader interface {
	FetchAll(ctx context.Context) ([]*models.Listing, error)
}
