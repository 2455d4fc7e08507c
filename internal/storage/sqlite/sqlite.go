package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type Sqlite struct {
	Db *sql.DB
}

func New(dsn string) (*Sqlite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single connection for SQLite; pragmas below are per connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Enable WAL for better concurrency
	_, _ = db.Exec(`PRAGMA journal_mode=WAL;`)

	// Wait up to 5s if locked
	_, _ = db.Exec(`PRAGMA busy_timeout = 5000;`)

	return &Sqlite{
		Db: db,
	}, nil
}

func (s *Sqlite) Ping(ctx context.Context) error {
	return s.Db.PingContext(ctx)
}

func (s *Sqlite) Close() error {
	return s.Db.Close()
}
