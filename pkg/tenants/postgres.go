// pkg/tenants/postgres.go
package tenants

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// pgRegistry implements Registry backed by PostgreSQL.
type pgRegistry struct {
	dbPool *pgxpool.Pool
	log    *zap.SugaredLogger
}

// NewPostgresRegistry constructs a PostgreSQL-backed environment registry.
func NewPostgresRegistry(dbPool *pgxpool.Pool, log *zap.SugaredLogger) Registry {
	return &pgRegistry{dbPool: dbPool, log: log}
}

// EnsureSchema creates required tables if they do not already exist.
// Safe to call repeatedly (idempotent).
func EnsureSchema(ctx context.Context, dbPool *pgxpool.Pool) error {
	_, err := dbPool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS environments (
  id BIGSERIAL PRIMARY KEY,
  name text NOT NULL DEFAULT '',
  primary_domain text UNIQUE NOT NULL,
  is_active boolean NOT NULL DEFAULT true,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS environment_domains (
  environment_id bigint NOT NULL REFERENCES environments(id) ON DELETE CASCADE,
  domain text UNIQUE NOT NULL,
  position int NOT NULL DEFAULT 0,
  PRIMARY KEY (environment_id, domain)
);
CREATE INDEX IF NOT EXISTS environment_domains_env_idx ON environment_domains(environment_id, position);
`)
	return err
}

// SeedFromEnv ingests initial environment data.
// jsonSeed format (ENVIRONMENT_SEED_JSON):
//
//	[{"name":"...","primary_domain":"...","additional_domains":["..."]}]
func SeedFromEnv(ctx context.Context, dbPool *pgxpool.Pool, jsonSeed string) error {
	if jsonSeed == "" {
		return nil
	}
	var entries []struct {
		Name              string   `json:"name"`
		PrimaryDomain     string   `json:"primary_domain"`
		AdditionalDomains []string `json:"additional_domains"`
	}
	if err := json.Unmarshal([]byte(jsonSeed), &entries); err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.PrimaryDomain == "" {
			continue
		}
		var id int64
		err := dbPool.QueryRow(ctx, `INSERT INTO environments(name, primary_domain)
		  VALUES ($1,$2)
		  ON CONFLICT (primary_domain) DO UPDATE SET name=EXCLUDED.name, updated_at=NOW()
		  RETURNING id`, entry.Name, entry.PrimaryDomain).Scan(&id)
		if err != nil {
			return err
		}
		for i, d := range entry.AdditionalDomains {
			_, _ = dbPool.Exec(ctx, `INSERT INTO environment_domains(environment_id, domain, position)
			  VALUES ($1,$2,$3) ON CONFLICT (domain) DO NOTHING`, id, d, i)
		}
	}
	return nil
}

// AllHostnames lists every domain (primary + additional) of active environments.
func (p *pgRegistry) AllHostnames(ctx context.Context) ([]string, error) {
	rows, err := p.dbPool.Query(ctx, `
		SELECT primary_domain FROM environments WHERE is_active
		UNION ALL
		SELECT d.domain FROM environment_domains d
		  JOIN environments e ON e.id = d.environment_id
		 WHERE e.is_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hosts []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

// FindByHostname resolves an active environment owning host as its primary or
// an additional domain.
func (p *pgRegistry) FindByHostname(ctx context.Context, host string) (Environment, error) {
	row := p.dbPool.QueryRow(ctx, `
		SELECT e.id, e.name, e.primary_domain, e.is_active,
		       COALESCE(array_agg(d.domain ORDER BY d.position) FILTER (WHERE d.domain IS NOT NULL), '{}')
		  FROM environments e
		  LEFT JOIN environment_domains d ON d.environment_id = e.id
		 WHERE e.is_active
		   AND (e.primary_domain = $1
		        OR e.id IN (SELECT environment_id FROM environment_domains WHERE domain = $1))
		 GROUP BY e.id
		 LIMIT 1`, host)
	return scanEnvironment(row)
}

// FindByID resolves an active environment by id.
func (p *pgRegistry) FindByID(ctx context.Context, id int64) (Environment, error) {
	row := p.dbPool.QueryRow(ctx, `
		SELECT e.id, e.name, e.primary_domain, e.is_active,
		       COALESCE(array_agg(d.domain ORDER BY d.position) FILTER (WHERE d.domain IS NOT NULL), '{}')
		  FROM environments e
		  LEFT JOIN environment_domains d ON d.environment_id = e.id
		 WHERE e.is_active AND e.id = $1
		 GROUP BY e.id`, id)
	return scanEnvironment(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEnvironment(row rowScanner) (Environment, error) {
	var e Environment
	if err := row.Scan(&e.ID, &e.Name, &e.PrimaryDomain, &e.IsActive, &e.AdditionalDomains); err != nil {
		return Environment{}, ErrNotFound
	}
	return e, nil
}
