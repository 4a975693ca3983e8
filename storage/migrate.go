package storage

import (
	"context"
	"fmt"

	"bizlist-scraper/models"
	"bizlist-scraper/utils"
)

// Migrate copies every listing from src into dst, skipping documents
// without a URL. It returns the number of listings written.
func Migrate(ctx context.Context, src ListingReader, dst ListingWriter, logger *utils.Logger) (int, error) {
	all, err := src.FetchAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("migrate: read source: %w", err)
	}

	listings := make([]*models.Listing, 0, len(all))
	for _, l := range all {
		if l.URL == "" {
			logger.Warn("[migrate] Skipping document without url: %q", l.Name)
			continue
		}
		listings = append(listings, l)
	}

	if err := dst.Write(ctx, listings); err != nil {
		return 0, fmt.Errorf("migrate: write destination: %w", err)
	}
	logger.Info("[migrate] Copied %d of %d listings", len(listings), len(all))
	return len(listings), nil
}

// MigrateFirestoreToBigQuery is the one-off Firestore → BigQuery copy.
func MigrateFirestoreToBigQuery(ctx context.Context, src *FirestoreWriter, dst *BigQueryWriter, logger *utils.Logger) (int, error) {
	return Migrate(ctx, src, dst, logger)
}
