package sqlite

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schema string

// Migrate applies schema.sql. Every statement is IF NOT EXISTS, so it is
// safe on each start.
func (s *Sqlite) Migrate(ctx context.Context) error {
	for i, stmt := range strings.Split(schema, ";\n") {
		st := strings.TrimSpace(stmt)
		if st == "" {
			continue
		}
		if _, err := s.Db.ExecContext(ctx, st); err != nil {
			return fmt.Errorf("sqlite migration statement %d: %w", i+1, err)
		}
	}
	return nil
}
