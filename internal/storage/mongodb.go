// mongodb.go - MongoDB-backed OCR reading cache

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// ReadingsCollection holds cached OCR readings.
const ReadingsCollection = "ocr_readings"

type readingDocument struct {
	Key           string `bson:"_id"`
	CachedReading `bson:",inline"`
	ExpiresAt     time.Time `bson:"expires_at"`
}

// MongoReadingCache is a ReadingCache shared by every instance of the service.
// Expired documents are removed by a TTL index on expires_at.
type MongoReadingCache struct {
	client     *mongo.Client
	collection *mongo.Collection
	ttl        time.Duration
	now        func() time.Time
}

// NewMongoReadingCache connects to uri, verifies the connection and makes sure
// the TTL index exists.
func NewMongoReadingCache(ctx context.Context, uri, dbName string, ttl time.Duration) (*MongoReadingCache, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	collection := client.Database(dbName).Collection(ReadingsCollection)
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create TTL index: %w", err)
	}

	common.Logger().Info("connected to MongoDB reading cache",
		zap.String("database", dbName),
		zap.Duration("ttl", ttl))

	return &MongoReadingCache{
		client:     client,
		collection: collection,
		ttl:        ttl,
		now:        time.Now,
	}, nil
}

// Get returns the cached reading for key. The TTL monitor runs about once a
// minute, so expiry is also checked in the query.
func (c *MongoReadingCache) Get(ctx context.Context, key string) (*CachedReading, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"_id": key, "expires_at": bson.M{"$gt": c.now()}}

	var doc readingDocument
	err := c.collection.FindOne(ctx, filter).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to query reading cache: %w", err)
	}
	return &doc.CachedReading, true, nil
}

// Put upserts reading under key.
func (c *MongoReadingCache) Put(ctx context.Context, key string, reading CachedReading) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	now := c.now()
	if reading.CachedAt.IsZero() {
		reading.CachedAt = now
	}
	doc := readingDocument{
		Key:           key,
		CachedReading: reading,
		ExpiresAt:     now.Add(c.ttl),
	}

	_, err := c.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to store reading: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection
func (c *MongoReadingCache) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := c.client.Disconnect(ctx); err != nil {
		return err
	}
	common.Logger().Info("MongoDB connection closed")
	return nil
}
