package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ageniuscoder/pairchat/backend/internal/config"
	"github.com/ageniuscoder/pairchat/backend/internal/messages"
	"github.com/ageniuscoder/pairchat/backend/internal/storage"
	"github.com/ageniuscoder/pairchat/backend/internal/storage/mongodb"
	"github.com/ageniuscoder/pairchat/backend/internal/storage/postgres"
	"github.com/ageniuscoder/pairchat/backend/internal/storage/sqlite"
	"github.com/ageniuscoder/pairchat/backend/internal/users"
)

// backend is the persistence selected by STORE_DRIVER.
type backend struct {
	store   messages.Store
	users   users.Directory
	migrate func(ctx context.Context) error
	close   func(ctx context.Context) error
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		conn, err := sqlite.New(cfg.SQLITEDsn)
		if err != nil {
			return nil, err
		}
		return &backend{
			store:   messages.NewSQLStore(conn.Db, storage.SQLite).WithTombstoneWindow(cfg.TombstoneWindow),
			users:   users.NewSQLDirectory(conn.Db, storage.SQLite),
			migrate: conn.Migrate,
			close:   func(context.Context) error { return conn.Close() },
		}, nil

	case config.DriverPostgres:
		conn, err := postgres.New(ctx, cfg.PostgresDsn)
		if err != nil {
			return nil, err
		}
		return &backend{
			store:   messages.NewSQLStore(conn.Db, storage.Postgres).WithTombstoneWindow(cfg.TombstoneWindow),
			users:   users.NewSQLDirectory(conn.Db, storage.Postgres),
			migrate: conn.Migrate,
			close:   func(context.Context) error { return conn.Close() },
		}, nil

	case config.DriverMongo:
		m, err := mongodb.New(ctx, mongodb.Connection{
			URI:           cfg.MongoURI,
			Database:      cfg.MongoDatabase,
			RetryCount:    cfg.MongoRetries,
			RetryInterval: 2 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		store := messages.NewMongoStore(m.Database).WithTombstoneWindow(cfg.TombstoneWindow)
		return &backend{
			store:   store,
			users:   users.NewMongoDirectory(m.Database),
			migrate: store.EnsureIndexes,
			close:   m.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
