// pkg/config/config.go
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env       string
	HTTPAddr  string // api-service
	AdminAddr string // admin-service

	// Base URL used to absolutize branding asset paths
	AssetBaseURL string

	// Session & cookie security
	SessionCookie    string // fallback cookie name when no frontend domain is detected
	SessionCookieTag string // prefix for per-frontend session cookie names
	CSRFCookie       string
	SessionTTL       time.Duration
	CookieSecure     bool
	CookieSameSite   string // "", lax, strict, none

	// Environment registry cache freshness
	RegistryCacheTTL time.Duration

	// Admin API bearer validation
	AdminIssuer   string
	AdminAudience string
	AdminJWKSURL  string

	// Redis & Postgres
	RedisURL    string
	DatabaseURL string
}

func Load() Config {
	_ = godotenv.Load()
	cfg := Config{
		Env:              env("CSL_ENV", "dev"),
		HTTPAddr:         env("CSL_HTTP_ADDR", ":8080"),
		AdminAddr:        env("CSL_ADMIN_ADDR", ":8082"),
		AssetBaseURL:     env("ASSET_BASE_URL", "http://localhost:8080"),
		SessionCookie:    env("SESSION_COOKIE", "csl_session"),
		SessionCookieTag: env("SESSION_COOKIE_TAG", "csl_session_"),
		CSRFCookie:       env("CSRF_COOKIE", "XSRF-TOKEN"),
		SessionTTL:       envDur("SESSION_TTL_MIN", 120) * time.Minute,
		CookieSecure:     envBool("COOKIE_SECURE", false),
		CookieSameSite:   env("COOKIE_SAMESITE", "lax"),
		RegistryCacheTTL: envDur("REGISTRY_CACHE_TTL_SEC", 30) * time.Second,
		AdminIssuer:      env("ADMIN_OIDC_ISSUER", ""),
		AdminAudience:    env("ADMIN_OIDC_AUDIENCE", "cslearn-admin"),
		AdminJWKSURL:     env("ADMIN_JWKS_URL", ""),
		RedisURL:         env("REDIS_URL", ""),
		DatabaseURL:      env("DATABASE_URL", ""),
	}
	if cfg.DatabaseURL == "" {
		log.Println("[WARN] DATABASE_URL not set — using in-memory environment registry for dev")
	}
	return cfg
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func envBool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	return def
}
func envDur(k string, def int) time.Duration {
	if v := os.Getenv(k); v != "" {
		i, _ := strconv.Atoi(v)
		return time.Duration(i)
	}
	return time.Duration(def)
}
