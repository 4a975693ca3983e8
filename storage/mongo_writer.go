package storage

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bizlist-scraper/models"
)

const mongoCollection = "listings"

// MongoWriter upserts listings into MongoDB keyed by URL (_id).
type MongoWriter struct {
	mc  *mongo.Client
	col *mongo.Collection
}

// NewMongoWriter connects to uri and ensures the lookup indices exist.
func NewMongoWriter(ctx context.Context, uri, database string) (*MongoWriter, error) {
	mc, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		_ = mc.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	col := mc.Database(database).Collection(mongoCollection)
	if _, err := col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "source", Value: 1}}},
		{Keys: bson.D{{Key: "is_fba", Value: 1}, {Key: "multiple", Value: 1}}},
	}); err != nil {
		_ = mc.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: indices: %w", err)
	}

	return &MongoWriter{mc: mc, col: col}, nil
}

// Write replaces each listing document, inserting it when new.
func (m *MongoWriter) Write(ctx context.Context, listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	ops := make([]mongo.WriteModel, 0, len(listings))
	for _, l := range listings {
		ops = append(ops, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": l.URL}).
			SetReplacement(l).
			SetUpsert(true))
	}

	if _, err := m.col.BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("mongo: bulk upsert: %w", err)
	}
	return nil
}

// FetchAll returns every stored listing ordered by scrape time.
func (m *MongoWriter) FetchAll(ctx context.Context) ([]*models.Listing, error) {
	cursor, err := m.col.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "scraped_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo: fetch all: %w", err)
	}
	defer cursor.Close(ctx)

	var listings []*models.Listing
	for cursor.Next(ctx) {
		l := &models.Listing{}
		if err := cursor.Decode(l); err != nil {
			return nil, fmt.Errorf("mongo: decode: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, cursor.Err()
}

// Close disconnects the client.
func (m *MongoWriter) Close() error {
	return m.mc.Disconnect(context.Background())
}
