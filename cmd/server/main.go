package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/config"
	"github.com/planttracer/odb/internal/database"
	"github.com/planttracer/odb/internal/handlers"
	"github.com/planttracer/odb/internal/services"
	"github.com/planttracer/odb/internal/telemetry"

	_ "github.com/planttracer/odb/docs/api" // Swagger docs
)

// @title Plant Tracer ODB API
// @version 1.0.0
// @description Operations surface of the Plant Tracer object store
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.url https://github.com/planttracer/odb

// @license.name AGPL-3.0
// @license.url https://www.gnu.org/licenses/agpl-3.0.html

// @host localhost:3000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey APIKeyAuth
// @in header
// @name X-Api-Key

const shutdownTimeout = 10 * time.Second

func main() {
	envFile := ""
	if _, err := os.Stat(".env"); err == nil {
		envFile = ".env"
	}

	// Load configuration
	cfg, err := config.LoadWithEnvFile(envFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.OTLPEndpoint, "odb")
	if err != nil {
		zlog.Fatal("Failed to set up tracing", zap.Error(err))
	}

	// Open the record store
	st, err := database.OpenStore(ctx, cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	if err := services.EnsureTables(ctx, st); err != nil {
		zlog.Fatal("Failed to ensure tables", zap.Error(err))
	}
	svc := services.New(st, zlog)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(zlog),
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("odb")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	handlers.Register(app, svc, zlog)

	// 404 handler
	app.Use(handlers.NotFound)

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		zlog.Info("Gracefully shutting down...")
		_ = app.ShutdownWithTimeout(shutdownTimeout)
	}()

	// Start server
	zlog.Info("Starting server", zap.String("port", cfg.Port), zap.String("store", cfg.StoreType))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zlog.Error("Server failed", zap.Error(err))
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		zlog.Warn("Trace flush failed", zap.Error(err))
	}
	zlog.Info("Server stopped")
}
