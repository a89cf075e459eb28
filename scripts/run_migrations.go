package main

import (
	"context"
	"log"
	"os"

	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logger"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := os.Args[1]
	if direction != "up" && direction != "down" {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	if err := logger.Init(cfg.App.Environment, cfg.App.LogLevel); err != nil {
		log.Fatalf("Init logger: %v", err)
	}
	defer logger.Sync()
	l := logger.Get()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		l.Fatal("Connect to database", zap.Error(err))
	}
	defer db.Close()

	n, err := database.Migrate(context.Background(), db, "migrations", direction)
	if err != nil {
		l.Fatal("Migration failed", zap.Error(err))
	}

	l.Info("Migrations complete", zap.Int("count", n), zap.String("direction", direction))
}
