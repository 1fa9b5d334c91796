package main

import (
	"context"
	"flag"
	"log"

	"github.com/tech-arch1tect/authsession"
	"github.com/tech-arch1tect/authsession/config"
	"github.com/tech-arch1tect/authsession/database"
	"github.com/tech-arch1tect/authsession/services/logging"
)

func main() {
	migrateOnly := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	cfg := &config.Config{}
	if err := config.LoadConfig(cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *migrateOnly {
		if err := migrate(cfg); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		return
	}

	app, err := authsession.New(authsession.WithConfig(cfg))
	if err != nil {
		log.Fatalf("Failed to build application: %v", err)
	}

	app.Run()
}

func migrate(cfg *config.Config) error {
	logger, err := logging.NewLoggingService(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.ProvideDatabase(*cfg, logger)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	ctx := context.Background()
	if err := database.Migrate(ctx, db, cfg.Database.Driver); err != nil {
		return err
	}

	version, err := database.SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	log.Printf("database schema at version %d", version)
	return nil
}
