package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Connection describes how to reach MongoDB.
type Connection struct {
	URI           string
	Database      string
	RetryCount    int
	RetryInterval time.Duration
}

type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// New connects and pings, retrying RetryCount times.
func New(ctx context.Context, c Connection) (*Mongo, error) {
	clientOpts := options.Client().ApplyURI(c.URI)

	var err error
	for i := 0; i <= c.RetryCount; i++ {
		var client *mongo.Client
		client, err = mongo.Connect(ctx, clientOpts)
		if err == nil {
			pingErr := client.Ping(ctx, readpref.Primary())
			if pingErr == nil {
				return &Mongo{
					Client:   client,
					Database: client.Database(c.Database),
				}, nil
			}
			_ = client.Disconnect(ctx)
			err = pingErr
		}

		if i < c.RetryCount {
			time.Sleep(c.RetryInterval)
		}
	}

	return nil, fmt.Errorf("connect to mongodb after %d retries: %w", c.RetryCount, err)
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.Client.Ping(ctx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}
