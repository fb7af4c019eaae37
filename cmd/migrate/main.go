package main

// Run database migrations:
//   go run ./cmd/migrate            apply pending migrations
//   go run ./cmd/migrate -down      revert the latest migration
//   go run ./cmd/migrate -version   print the applied version

import (
	"context"
	"flag"
	"log"
	"os"

	"jobfit-backend/internal/shared/config"
	"jobfit-backend/internal/shared/storage/db"
)

func main() {
	down := flag.Bool("down", false, "revert the latest migration")
	version := flag.Bool("version", false, "print the applied schema version")
	flag.Parse()

	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL is required")
		os.Exit(1)
	}
	ctx := context.Background()

	opts := db.OptionsFromEnv(db.DefaultMigrateOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	switch {
	case *version:
		v, err := db.SchemaVersion(ctx, sqlDB)
		if err != nil {
			log.Printf("failed to read schema version: %v", err)
			os.Exit(1)
		}
		log.Printf("schema version %d", v)
	case *down:
		if err := db.RollbackMigration(ctx, sqlDB); err != nil {
			log.Printf("failed to roll back migration: %v", err)
			os.Exit(1)
		}
	default:
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			log.Printf("failed to run migrations: %v", err)
			os.Exit(1)
		}
	}
}
