package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/middleware"
	"github.com/planttracer/odb/internal/services"
)

// Register mounts the /api routes on app.
func Register(app *fiber.App, svc *services.Services, log *zap.Logger) {
	api := app.Group("/api")

	health := &HealthHandler{Store: svc.Store(), Logger: log}
	api.Get("/health", health.Health)

	auth := middleware.APIKeyAuth(svc.APIKeys)
	audit := middleware.AuditLog(svc.Logs, log)
	api.Get("/check-api-key", auth, audit, CheckAPIKey)
	api.Post("/check-api-key", auth, audit, CheckAPIKey)

	logs := &LogsHandler{Logs: svc.Logs}
	api.Get("/logs", auth, audit, logs.GetLogs)
}
