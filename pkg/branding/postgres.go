// pkg/branding/postgres.go
package branding

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type pgStore struct {
	dbPool *pgxpool.Pool
	log    *zap.SugaredLogger
}

// NewPostgresStore constructs a PostgreSQL-backed branding store.
func NewPostgresStore(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Store {
	return &pgStore{dbPool: dbPool, log: log}
}

// EnsureSchema creates the brandings table if it does not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS brandings (
  id BIGSERIAL PRIMARY KEY,
  environment_id bigint REFERENCES environments(id) ON DELETE CASCADE,
  user_id bigint,
  company_name text NOT NULL DEFAULT '',
  logo_path text NOT NULL DEFAULT '',
  favicon_path text NOT NULL DEFAULT '',
  primary_color text NOT NULL DEFAULT '',
  secondary_color text NOT NULL DEFAULT '',
  accent_color text NOT NULL DEFAULT '',
  font_family text NOT NULL DEFAULT '',
  custom_css text NOT NULL DEFAULT '',
  custom_js text NOT NULL DEFAULT '',
  is_active boolean NOT NULL DEFAULT true,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS brandings_env_active_idx ON brandings(environment_id) WHERE is_active;
CREATE INDEX IF NOT EXISTS brandings_user_active_idx ON brandings(user_id) WHERE is_active;
`)
	return err
}

const brandingColumns = `id, environment_id, user_id, company_name, logo_path, favicon_path,
	primary_color, secondary_color, accent_color, font_family, custom_css, custom_js, is_active`

func (p *pgStore) ActiveForEnvironment(ctx context.Context, environmentID int64) (Branding, error) {
	row := p.dbPool.QueryRow(ctx, `SELECT `+brandingColumns+`
		FROM brandings WHERE environment_id=$1 AND is_active
		ORDER BY updated_at DESC LIMIT 1`, environmentID)
	return scanBranding(row)
}

func (p *pgStore) ActiveForUser(ctx context.Context, userID int64) (Branding, error) {
	row := p.dbPool.QueryRow(ctx, `SELECT `+brandingColumns+`
		FROM brandings WHERE user_id=$1 AND is_active
		ORDER BY updated_at DESC LIMIT 1`, userID)
	return scanBranding(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBranding(row rowScanner) (Branding, error) {
	var b Branding
	if err := row.Scan(&b.ID, &b.EnvironmentID, &b.UserID, &b.CompanyName, &b.LogoPath, &b.FaviconPath,
		&b.PrimaryColor, &b.SecondaryColor, &b.AccentColor, &b.FontFamily, &b.CustomCSS, &b.CustomJS, &b.IsActive); err != nil {
		return Branding{}, ErrNotFound
	}
	return b, nil
}
