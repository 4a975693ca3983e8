package storage

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"bizlist-scraper/models"
)

// FirestoreWriter stores listings as documents in a Firestore collection,
// one document per listing keyed by DocID.
type FirestoreWriter struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreWriter(ctx context.Context, projectID, collection string) (*FirestoreWriter, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore: new client: %w", err)
	}
	return &FirestoreWriter{client: client, collection: collection}, nil
}

// Write sets every listing through a BulkWriter and waits for all results.
func (f *FirestoreWriter) Write(ctx context.Context, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	col := f.client.Collection(f.collection)
	bw := f.client.BulkWriter(ctx)

	jobs := make([]*firestore.BulkWriterJob, 0, len(listings))
	var errs []error
	for _, l := range listings {
		job, err := bw.Set(col.Doc(DocID(l.URL)), l)
		if err != nil {
			errs = append(errs, fmt.Errorf("firestore: queue %s: %w", l.URL, err))
			continue
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			errs = append(errs, fmt.Errorf("firestore: set: %w", err))
		}
	}
	return errors.Join(errs...)
}

// FetchAll reads the whole collection.
func (f *FirestoreWriter) FetchAll(ctx context.Context) ([]*models.Listing, error) {
	it := f.client.Collection(f.collection).Documents(ctx)
	defer it.Stop()

	var listings []*models.Listing
	for {
		doc, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("firestore: iterate: %w", err)
		}
		l := &models.Listing{}
		if err := doc.DataTo(l); err != nil {
			return nil, fmt.Errorf("firestore: decode %s: %w", doc.Ref.ID, err)
		}
		listings = append(listings, l)
	}
	return listings, nil
}

func (f *FirestoreWriter) Close() error {
	return f.client.Close()
}
