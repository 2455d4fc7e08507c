package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schema string

// Migrate applies schema.sql inside one transaction.
func (s *Postgres) Migrate(ctx context.Context) error {
	tx, err := s.Db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range strings.Split(schema, ";") {
		st := strings.TrimSpace(stmt)
		if st == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("postgres migration statement %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}
