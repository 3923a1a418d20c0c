// api/database/mongo.go
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

type MongoClient struct {
	client *mongo.Client
	DB     *mongo.Database
}

// NewMongoDB connects to MongoDB and pings it so a bad URL fails at startup
// instead of on the first request.
func NewMongoDB(mongoURL, dbName string) (*MongoClient, error) {
	if mongoURL == "" {
		return nil, fmt.Errorf("MONGO_URL environment variable is not set")
	}

	opts := options.Client().
		ApplyURI(mongoURL).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &MongoClient{client: client, DB: client.Database(dbName)}, nil
}

// Collection returns a handle to the named collection.
func (c *MongoClient) Collection(name string) *mongo.Collection {
	return c.DB.Collection(name)
}

func (c *MongoClient) Close(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	return c.client.Disconnect(ctx)
}
