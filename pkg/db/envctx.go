package db

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BeginTxWithEnvironment starts a transaction and sets app.environment_id for
// row-level security policies on environment-scoped tables.
// Call tx.Rollback(ctx) on error paths; Commit on success.
func BeginTxWithEnvironment(ctx context.Context, pool *pgxpool.Pool, environmentID int64) (pgx.Tx, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('app.environment_id', $1, true)", strconv.FormatInt(environmentID, 10)); err != nil {
		_ = tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}
