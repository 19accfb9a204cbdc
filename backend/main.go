package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"philosofium/backend/config"
	"philosofium/backend/models"
	"philosofium/backend/routes"
	"philosofium/backend/services"
	"philosofium/backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(cfg.LogMode)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := utils.InitDB(cfg, logger)
	if err != nil {
		logger.Fatal("Error initializing database", "err", err)
	}
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		logger.Fatal("Error migrating database", "err", err)
	}

	// Badge catalog is seeded once per process start
	badges, err := services.LoadBadgeCatalog(cfg.BadgesFile)
	if err != nil {
		logger.Fatal("Error loading badge catalog", "err", err, "file", cfg.BadgesFile)
	}
	if err := services.SeedBadges(context.Background(), db, badges); err != nil {
		logger.Fatal("Error seeding badges", "err", err)
	}
	logger.Info("badge catalog seeded", "count", len(badges))

	app := routes.NewApp(cfg, logger)
	routes.SetupRoutes(app, db, cfg, routes.NewServices(db, cfg, logger), logger)

	app.Server().ReadTimeout = 15 * time.Second
	app.Server().WriteTimeout = 30 * time.Second
	app.Server().IdleTimeout = 90 * time.Second

	go func() {
		logger.Info("server listening", "port", cfg.ServerPort, "timezone", cfg.Location.String())
		if err := app.Listen(":" + cfg.ServerPort); err != nil {
			logger.Fatal("server error", "err", err)
		}
	}()

	// graceful shutdown, then close the pool
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Warn("shutdown", "err", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
