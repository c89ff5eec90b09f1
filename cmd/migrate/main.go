// Command migrate creates or updates the database schema and exits.
package main

import (
	"context"
	"log"
	"time"

	"busticket/internal/config"
	"busticket/internal/logger"
	"busticket/internal/storage"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadMigration()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer lg.Sync()

	gw, err := storage.Open(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Fatal("open database", zap.Error(err))
	}
	defer gw.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := gw.Migrate(ctx); err != nil {
		lg.Fatal("migrate", zap.Error(err))
	}
}
