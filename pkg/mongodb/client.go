package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Client represents a MongoDB client
type Client struct {
	client       *mongo.Client
	db           *mongo.Database
	transactions bool
}

// NewClient connects, pings the primary and registers the decimal codec.
// With transactions disabled WithinTx runs its function without a session,
// which is what a standalone server supports. That mode is meant for local
// development: multi-document writes are not atomic and callers fall back to
// compensating writes, so production deployments run a replica set.
func NewClient(ctx context.Context, uri string, transactions bool) (*Client, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetRegistry(NewRegistry()).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return &Client{client: client, transactions: transactions}, nil
}

// Database returns a database
func (c *Client) Database(name string) *mongo.Database {
	if c.db == nil || c.db.Name() != name {
		c.db = c.client.Database(name)
	}
	return c.db
}

// WithinTx runs fn inside a multi-document transaction. fn may be retried by
// the driver on transient errors, so it must not have side effects outside
// the database.
func (c *Client) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !c.transactions {
		return fn(ctx)
	}
	sess, err := c.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// Disconnect disconnects from MongoDB
func (c *Client) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
