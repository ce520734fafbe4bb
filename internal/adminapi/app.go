package adminapi

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"go.uber.org/zap"

	"cslearn/pkg/branding"
	"cslearn/pkg/tenants"
	"cslearn/pkg/tokens"
)

// Config holds admin-service specific configuration.
type Config struct {
	HTTPAddr     string
	OIDCIssuer   string
	OIDCAudience string
	JWKSURL      string
	SeedDir      string
	SeedJSON     string
	AdminOrigins string
}

// App is the admin-service application container: shared deps and config
// only; request-scoped work goes through context.
type App struct {
	log          *zap.SugaredLogger
	db           *pgxpool.Pool
	adminJWKS    jwk.Set
	adminIssuer  string
	adminAud     string
	adminOrigins string
}

// New constructs App and performs one-time startup tasks (schema, seed
// import). The admin-service owns the write side of the registry the request
// pipeline reads.
func New(log *zap.SugaredLogger, db *pgxpool.Pool, cfg Config) *App {
	app := &App{
		log:          log,
		db:           db,
		adminIssuer:  cfg.OIDCIssuer,
		adminAud:     cfg.OIDCAudience,
		adminOrigins: cfg.AdminOrigins,
	}
	if cfg.JWKSURL != "" {
		app.adminJWKS = mustJWKS(cfg.JWKSURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := tenants.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("ensure environments schema: %v", err)
	}
	if err := branding.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("ensure brandings schema: %v", err)
	}
	if err := tokens.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("ensure tokens schema: %v", err)
	}
	if cfg.SeedJSON != "" {
		if err := tenants.SeedFromEnv(ctx, db, cfg.SeedJSON); err != nil {
			log.Warnf("environment seed failed: %v", err)
		}
	}
	if dir := cfg.SeedDir; dir != "" {
		if err := importEnvironmentsFromDir(ctx, db, log, dir); err != nil {
			log.Warnf("environment import failed: %v", err)
		}
	}
	return app
}
