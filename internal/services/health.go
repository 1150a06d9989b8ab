package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/store"
)

// healthTimeout bounds the store ping.
const healthTimeout = 5 * time.Second

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	Status       string            `json:"status"`
	Store        string            `json:"store"`
	Details      map[string]string `json:"details,omitempty"`
	ErrorMessage string            `json:"error,omitempty"`
}

// Healthy reports whether every check passed.
func (r HealthCheckResult) Healthy() bool {
	return r.Status == "healthy"
}

// HealthCheck pings the store backend.
func HealthCheck(ctx context.Context, st *store.Store, logger *zap.Logger) HealthCheckResult {
	result := HealthCheckResult{
		Status:  "healthy",
		Details: make(map[string]string),
	}
	result.Details["backend"] = st.Backend().Name()
	if st.Prefix() != "" {
		result.Details["table_prefix"] = st.Prefix()
	}

	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := st.Ping(ctx); err != nil {
		result.Status = "unhealthy"
		result.Store = "unreachable"
		result.Details["store_error"] = err.Error()
		result.ErrorMessage = fmt.Sprintf("Store ping failed: %v", err)
		logger.Warn("Health check failed - store ping", zap.Error(err))
		return result
	}

	result.Store = "ok"
	logger.Debug("Health check passed")
	return result
}
