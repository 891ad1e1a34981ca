package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/glowmobile/TanAppBack/internal/config"
	"github.com/glowmobile/TanAppBack/internal/database"
	"github.com/glowmobile/TanAppBack/internal/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.AppEnv == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	if cfg.DBUrl == "" {
		logger.Fatal().Msg("DB_URL is required")
	}
	db, err := database.Connect(cfg.DBUrl)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	app := fiber.New()

	app.Use(cors.New())
	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	svcs := routes.RegisterRoutes(app, cfg, db, logger)

	// Periodic cleanup of overdue holds. Expiry is also applied lazily on
	// every reserve/availability/complete call, so this only trims stale
	// rows.
	go func() {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := svcs.Reservations.ExpireStale(context.Background()); err != nil {
				logger.Error().Err(err).Msg("hold expiry sweep failed")
			}
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server failed to start")
	}
}
