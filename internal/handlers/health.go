package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/services"
	"github.com/planttracer/odb/internal/store"
)

// HealthHandler reports store reachability.
type HealthHandler struct {
	Store  *store.Store
	Logger *zap.Logger
}

// Health handles GET /api/health
// @Summary Service health
// @Description Ping the configured store backend
// @Tags Ops
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	result := services.HealthCheck(c.UserContext(), h.Store, h.Logger)
	status := fiber.StatusOK
	if !result.Healthy() {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
