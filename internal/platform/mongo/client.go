// Package mongo owns the document-store connection. Collections are handed
// out by name so stores never share ambient globals.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"outreach/internal/platform/config"
)

// Client wraps the driver client together with the configured database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// New connects to the document store and verifies the connection with a ping.
func New(ctx context.Context, cfg config.MongoConfig) (*Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Client{client: client, db: client.Database(cfg.Database)}, nil
}

// Collection returns a handle scoped to the configured database.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.db.Collection(name)
}

// Health checks the connection.
func (c *Client) Health(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from the store.
func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
