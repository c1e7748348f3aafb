package main

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/michalprusek/spheroseg-sub010/config"
	"github.com/michalprusek/spheroseg-sub010/db"
	"github.com/michalprusek/spheroseg-sub010/internal/auth/handler"
	repo "github.com/michalprusek/spheroseg-sub010/internal/auth/repository/postgres"
	"github.com/michalprusek/spheroseg-sub010/internal/auth/service"
	"github.com/michalprusek/spheroseg-sub010/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("development").WithError(err).Fatal("failed to load configuration")
	}

	log := logger.New(cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.Migrate(cfg.DBURL); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	pool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer pool.Close()

	repository := repo.NewPostgresRepository(pool)
	clock := service.SystemClock{}

	tokenService := service.NewTokenService(cfg, repository, clock, log)
	userService := service.NewUserService(repository, tokenService, repository, clock)
	revocationService := service.NewRevocationService(repository, clock, log)
	cleanupService := service.NewCleanupService(repository, clock, log, cfg.CleanupGrace(), cfg.CleanupLimit)

	go cleanupService.Run(ctx, cfg.CleanupInterval())

	authHandler := handler.NewAuthHandler(userService, tokenService, revocationService, log)

	app := fiber.New()
	handler.RegisterRoutes(app, authHandler, tokenService, cfg.Env == "production")

	log.WithField("port", cfg.Port).Info("starting auth service")
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
