package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coachhub/coachhub-api/internal/config"
	"github.com/coachhub/coachhub-api/internal/database"
	"github.com/coachhub/coachhub-api/internal/logging"
	"github.com/coachhub/coachhub-api/internal/routes"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	appLogger := logging.Setup(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database and, when configured, Redis
	if err := database.ConnectDB(ctx, cfg.DBUrl); err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.CloseDB()

	var redisClient *redis.Client
	if cfg.RedisEnabled() {
		redisClient, err = database.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		appLogger.Info().Msg("REDIS_ADDR not set, topic views are tracked in PostgreSQL")
	}

	// 3. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      "coachhub-api",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		ErrorHandler: errorHandler,
	})

	// Middleware
	app.Use(requestid.New(requestid.Config{
		Generator: func() string { return uuid.NewString() },
	}))
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.CORSOrigins}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(recover.New())

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := routes.RegisterRoutes(app, cfg, routes.Dependencies{
		DB:     database.DB,
		Redis:  redisClient,
		Logger: appLogger,
	}); err != nil {
		appLogger.Fatal().Err(err).Msg("Failed to register routes")
	}

	// 4. Start Server
	go func() {
		<-ctx.Done()
		appLogger.Info().Msg("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			appLogger.Error().Err(err).Msg("Shutdown failed")
		}
	}()

	appLogger.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("Server starting")
	if err := app.Listen(":" + cfg.Port); err != nil {
		appLogger.Fatal().Err(err).Msg("Server failed to start")
	}
}

// errorHandler renders errors that escape handlers, such as unknown routes, in the API envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}
	if code >= fiber.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("path", c.Path()).
			Msg("unhandled error")
	}

	return c.Status(code).JSON(fiber.Map{"success": false, "message": message})
}
