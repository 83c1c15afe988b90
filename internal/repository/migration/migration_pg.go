package migration

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
)

//go:embed init.sql
var initSQL string

// RunMigrations applies the schema. Every statement is idempotent, so it runs
// on each start.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if _, err := db.ExecContext(ctx, initSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if logger != nil {
		logger.Info("migrations completed", "event", "migrations_applied")
	}
	return nil
}
