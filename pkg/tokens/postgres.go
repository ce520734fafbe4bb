// pkg/tokens/postgres.go
package tokens

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type pgStore struct {
	dbPool *pgxpool.Pool
	log    *zap.SugaredLogger
}

// NewPostgresStore constructs a PostgreSQL-backed token store.
func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Store {
	return &pgStore{dbPool: dbPool, log: log}
}

// EnsureSchema creates the api_tokens table if it does not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS api_tokens (
  id BIGSERIAL PRIMARY KEY,
  user_id bigint NOT NULL,
  secret_hash text NOT NULL,
  abilities text[] NOT NULL DEFAULT '{}',
  created_at timestamptz NOT NULL DEFAULT NOW(),
  last_used_at timestamptz
);
`)
	return err
}

func (p *pgStore) Lookup(ctx context.Context, id int64) (Token, error) {
	row := p.dbPool.QueryRow(ctx, `SELECT id, user_id, secret_hash, abilities FROM api_tokens WHERE id=$1`, id)
	var t Token
	if err := row.Scan(&t.ID, &t.UserID, &t.SecretHash, &t.Abilities); err != nil {
		return Token{}, ErrNotFound
	}
	return t, nil
}
