package database

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schema string

// Schema returns the DDL applied by Migrate.
func Schema() string {
	return schema
}

// migrationLockID serialises concurrent Migrate calls across processes.
const migrationLockID = 7_302_417_001

// Migrate applies the orders schema. Every statement is idempotent, so it is safe
// to run on each start.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger zerolog.Logger) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.Exec(context.Background(), "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			logger.Warn().Err(err).Msg("failed to release migration lock")
		}
	}()

	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info().Msg("database schema is up to date")
	return nil
}
