// cmd/admin-service/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cslearn/internal/adminapi"
	"cslearn/pkg/config"
	"cslearn/pkg/db"
	"cslearn/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, "admin-service")

	pool := db.MustConnect(cfg, log)
	if pool == nil {
		log.Fatalw("admin-service requires DATABASE_URL")
	}

	app := adminapi.New(log, pool, adminapi.Config{
		HTTPAddr:     cfg.AdminAddr,
		OIDCIssuer:   cfg.AdminIssuer,
		OIDCAudience: cfg.AdminAudience,
		JWKSURL:      cfg.AdminJWKSURL,
		SeedDir:      os.Getenv("ENVIRONMENT_SEED_DIR"),
		SeedJSON:     os.Getenv("ENVIRONMENT_SEED_JSON"),
		AdminOrigins: os.Getenv("ADMIN_CORS_ORIGINS"),
	})

	srv := &http.Server{Addr: cfg.AdminAddr, Handler: app.Handler()}
	go func() {
		log.Infow("admin-service listening", "addr", cfg.AdminAddr)
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
	fmt.Println("admin-service stopped")
}
