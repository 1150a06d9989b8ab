package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/services"
)

func TestHealthCheck(t *testing.T) {
	svc := setupServices(t)

	result := services.HealthCheck(context.Background(), svc.Store(), zap.NewNop())
	assert.True(t, result.Healthy())
	assert.Equal(t, "ok", result.Store)
	assert.Equal(t, "sql/sqlite", result.Details["backend"])
	assert.Equal(t, "test_", result.Details["table_prefix"])

	_ = svc.Store().Close()
	result = services.HealthCheck(context.Background(), svc.Store(), zap.NewNop())
	assert.False(t, result.Healthy())
	assert.Equal(t, "unreachable", result.Store)
	assert.NotEmpty(t, result.ErrorMessage)
}
