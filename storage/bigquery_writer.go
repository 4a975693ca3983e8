package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"bizlist-scraper/models"
)

const bigQueryBatch = 500

// BigQueryWriter streams listings into a BigQuery table, creating it from
// the Listing struct schema when it does not exist yet.
type BigQueryWriter struct {
	client *bigquery.Client
	table  *bigquery.Table
	schema bigquery.Schema
}

func NewBigQueryWriter(ctx context.Context, projectID, dataset, table string) (*BigQueryWriter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("bigquery: new client: %w", err)
	}

	schema, err := bigquery.InferSchema(models.Listing{})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("bigquery: infer schema: %w", err)
	}

	w := &BigQueryWriter{
		client: client,
		table:  client.Dataset(dataset).Table(table),
		schema: schema,
	}
	if err := w.ensureTable(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return w, nil
}

func (w *BigQueryWriter) ensureTable(ctx context.Context) error {
	_, err := w.table.Metadata(ctx)
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusNotFound {
		return fmt.Errorf("bigquery: table metadata: %w", err)
	}

	meta := &bigquery.TableMetadata{
		Schema: w.schema,
		TimePartitioning: &bigquery.TimePartitioning{
			Type:  bigquery.DayPartitioningType,
			Field: "scraped_at",
		},
	}
	if err := w.table.Create(ctx, meta); err != nil {
		return fmt.Errorf("bigquery: create table: %w", err)
	}
	return nil
}

// Write streams listings in batches. InsertID is the listing's DocID so
// BigQuery drops retried duplicates on a best-effort basis.
func (w *BigQueryWriter) Write(ctx context.Context, listings []*models.Listing) error {
	ins := w.table.Inserter()
	for i := 0; i < len(listings); i += bigQueryBatch {
		end := min(i+bigQueryBatch, len(listings))
		savers := make([]*bigquery.StructSaver, 0, end-i)
		for _, l := range listings[i:end] {
			savers = append(savers, &bigquery.StructSaver{
				Struct:   l,
				Schema:   w.schema,
				InsertID: DocID(l.URL),
			})
		}
		if err := ins.Put(ctx, savers); err != nil {
			return fmt.Errorf("bigquery: insert batch at %d: %w", i, err)
		}
	}
	return nil
}

// FetchAll reads the latest row per URL back, newest scrape first. The
// table is append-only, so every run adds another copy of each listing.
func (w *BigQueryWriter) FetchAll(ctx context.Context) ([]*models.Listing, error) {
	q := w.client.Query(latestRowsQuery(w.table.ProjectID, w.table.DatasetID, w.table.TableID))
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("bigquery: query: %w", err)
	}

	var listings []*models.Listing
	for {
		l := &models.Listing{}
		err := it.Next(l)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("bigquery: read row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func latestRowsQuery(project, dataset, table string) string {
	return fmt.Sprintf("SELECT * FROM `%s.%s.%s` WHERE TRUE "+
		"QUALIFY ROW_NUMBER() OVER (PARTITION BY url ORDER BY scraped_at DESC) = 1 "+
		"ORDER BY scraped_at DESC", project, dataset, table)
}

func (w *BigQueryWriter) Close() error {
	return w.client.Close()
}
