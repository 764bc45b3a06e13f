package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearProviders truncates the intent_providers mirror. Schema is preserved.
// The in-memory directory repopulates it on the next start.
func ClearProviders(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing intent provider mirror", clearLogPrefix))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE intent_providers`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Mirror cleared", clearLogPrefix))
	return nil
}
