// cmd/api-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cslearn/internal/api"
	"cslearn/pkg/branding"
	"cslearn/pkg/config"
	"cslearn/pkg/db"
	"cslearn/pkg/logger"
	"cslearn/pkg/middleware"
	"cslearn/pkg/session"
	"cslearn/pkg/tenants"
	"cslearn/pkg/tokens"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, "api-service")

	pool := db.MustConnect(cfg, log)
	rdb := db.MustRedis(cfg, log)

	var reg tenants.Registry
	var brandings branding.Store
	var toks tokens.Store
	if pool != nil {
		if err := tenants.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("environments schema", "err", err)
		}
		if err := branding.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("brandings schema", "err", err)
		}
		if err := tokens.EnsureSchema(context.Background(), pool); err != nil {
			log.Fatalw("tokens schema", "err", err)
		}
		if err := tenants.SeedFromEnv(context.Background(), pool, os.Getenv("ENVIRONMENT_SEED_JSON")); err != nil {
			log.Warnw("environment seed", "err", err)
		}
		reg = tenants.NewPostgresRegistry(pool, log)
		brandings = branding.NewPostgresStore(pool, log)
		toks = tokens.NewPostgresStore(pool, log)
	} else {
		reg = tenants.NewMemoryRegistryFromEnv(log)
		brandings = branding.NewMemoryStore()
		toks = tokens.NewMemoryStore()
	}
	reg = tenants.NewCachedRegistry(reg, rdb, cfg.RegistryCacheTTL, log)

	sessions := session.NewManager(rdb, cfg.SessionTTL, cfg.CookieSecure, cfg.CookieSameSite, log)

	r := chi.NewRouter()
	for _, mw := range middleware.Pipeline(cfg, log, reg, toks, brandings, sessions) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("ok")) })
	api.Routes(r, log)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		log.Infow("api-service listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("ListenAndServe", "err", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	fmt.Println("api-service stopped")
}
