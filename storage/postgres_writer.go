package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"bizlist-scraper/models"
)

// listingColumns is the insert column order; FetchAll selects the same
// list after id.
var listingColumns = []string{
	"source", "name", "url", "price", "revenue", "profit",
	"price_text", "revenue_text", "profit_text", "multiple", "multiple_basis",
	"description", "is_fba", "category", "quality",
	"location", "employees", "established_year", "monthly_traffic", "inventory",
	"run_id", "scraped_at",
}

// PostgresWriter persists cleaned listings to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(ctx context.Context, dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate(ctx context.Context) error {
	_, err := pw.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS business_listings (
			id               SERIAL PRIMARY KEY,
			source           VARCHAR(64)    NOT NULL,
			name             TEXT           NOT NULL,
			url              TEXT           UNIQUE NOT NULL,
			price            NUMERIC(14,2)  NOT NULL DEFAULT 0,
			revenue          NUMERIC(14,2)  NOT NULL DEFAULT 0,
			profit           NUMERIC(14,2)  NOT NULL DEFAULT 0,
			price_text       TEXT           NOT NULL DEFAULT '',
			revenue_text     TEXT           NOT NULL DEFAULT '',
			profit_text      TEXT           NOT NULL DEFAULT '',
			multiple         NUMERIC(10,2)  NOT NULL DEFAULT 0,
			multiple_basis   VARCHAR(16)    NOT NULL DEFAULT '',
			description      TEXT           NOT NULL DEFAULT '',
			is_fba           BOOLEAN        NOT NULL DEFAULT FALSE,
			category         VARCHAR(32)    NOT NULL DEFAULT '',
			quality          SMALLINT       NOT NULL DEFAULT 0,
			location         TEXT           NOT NULL DEFAULT '',
			employees        INTEGER        NOT NULL DEFAULT 0,
			established_year INTEGER        NOT NULL DEFAULT 0,
			monthly_traffic  BIGINT         NOT NULL DEFAULT 0,
			inventory        TEXT           NOT NULL DEFAULT '',
			run_id           TEXT           NOT NULL DEFAULT '',
			scraped_at       TIMESTAMPTZ    NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_business_listings_price    ON business_listings(price);
		CREATE INDEX IF NOT EXISTS idx_business_listings_source   ON business_listings(source);
		CREATE INDEX IF NOT EXISTS idx_business_listings_is_fba   ON business_listings(is_fba);
		CREATE INDEX IF NOT EXISTS idx_business_listings_multiple ON business_listings(multiple);
	`)
	return err
}

// Write upserts listings in batches keyed on url. Re-scraped listings
// overwrite their stored figures.
func (pw *PostgresWriter) Write(ctx context.Context, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	const batchSize = 40
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pw.upsertBatch(ctx, listings[i:end]); err != nil {
			return fmt.Errorf("postgres: upsert batch at %d: %w", i, err)
		}
	}
	return nil
}

func (pw *PostgresWriter) upsertBatch(ctx context.Context, batch []*models.Listing) error {
	n := len(listingColumns)
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*n)

	// One statement cannot touch the same row twice.
	seen := make(map[string]struct{}, len(batch))
	for _, l := range batch {
		if _, dup := seen[l.URL]; dup {
			continue
		}
		seen[l.URL] = struct{}{}

		base := len(valueStrings) * n
		ph := make([]string, n)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(ph, ",")+")")
		valueArgs = append(valueArgs,
			l.Source, l.Name, l.URL, l.Price, l.Revenue, l.Profit,
			l.PriceText, l.RevenueText, l.ProfitText, l.Multiple, l.MultipleBasis,
			l.Description, l.IsFBA, l.Category, l.Quality,
			l.Location, l.Employees, l.EstablishedYear, l.MonthlyTraffic, l.Inventory,
			l.RunID, l.ScrapedAt)
	}

	updates := make([]string, 0, n-1)
	for _, c := range listingColumns {
		if c != "url" {
			updates = append(updates, c+" = EXCLUDED."+c)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO business_listings (%s)
		VALUES %s
		ON CONFLICT (url) DO UPDATE SET %s
	`, strings.Join(listingColumns, ", "), strings.Join(valueStrings, ","), strings.Join(updates, ", "))

	_, err := pw.db.ExecContext(ctx, query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored listings in insertion order.
func (pw *PostgresWriter) FetchAll(ctx context.Context) ([]*models.Listing, error) {
	rows, err := pw.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, %s
		FROM business_listings
		ORDER BY id
	`, strings.Join(listingColumns, ", ")))
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		if err := rows.Scan(
			&l.ID, &l.Source, &l.Name, &l.URL, &l.Price, &l.Revenue, &l.Profit,
			&l.PriceText, &l.RevenueText, &l.ProfitText, &l.Multiple, &l.MultipleBasis,
			&l.Description, &l.IsFBA, &l.Category, &l.Quality,
			&l.Location, &l.Employees, &l.EstablishedYear, &l.MonthlyTraffic, &l.Inventory,
			&l.RunID, &l.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
