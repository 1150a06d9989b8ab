package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/middleware"
	"github.com/planttracer/odb/internal/models"
)

type fakeRecorder struct {
	entries []models.LogEntry
	err     error
}

func (f *fakeRecorder) AddLog(_ context.Context, entry models.LogEntry) (*models.LogEntry, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.entries = append(f.entries, entry)
	return &entry, nil
}

func setupAuditApp(r middleware.LogRecorder) *fiber.App {
	app := setupApp(&fakeValidator{})
	audit := middleware.AuditLog(r, zap.NewNop())
	app.Get("/audited", middleware.APIKeyAuth(&fakeValidator{}), audit, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get("/failing", middleware.APIKeyAuth(&fakeValidator{}), audit, func(c *fiber.Ctx) error {
		return errors.New("handler failed")
	})
	return app
}

func TestAuditLog_RecordsAuthenticatedRequests(t *testing.T) {
	rec := &fakeRecorder{}
	app := setupAuditApp(rec)

	req := httptest.NewRequest(http.MethodGet, "/audited", nil)
	req.Header.Set(middleware.APIKeyHeader, goodKey)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, "u1", rec.entries[0].UserID)
	assert.Equal(t, "GET /audited", rec.entries[0].Message)
	assert.NotEmpty(t, rec.entries[0].IPAddr)

	req = httptest.NewRequest(http.MethodGet, "/failing", nil)
	req.Header.Set(middleware.APIKeyHeader, goodKey)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Len(t, rec.entries, 2)
}

func TestAuditLog_SkipsRejectedKeys(t *testing.T) {
	rec := &fakeRecorder{}
	app := setupAuditApp(rec)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/audited?api_key=nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Empty(t, rec.entries)
}

func TestAuditLog_WriteFailureKeepsResponse(t *testing.T) {
	app := setupAuditApp(&fakeRecorder{err: errors.New("table gone")})

	req := httptest.NewRequest(http.MethodGet, "/audited", nil)
	req.Header.Set(middleware.APIKeyHeader, goodKey)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body(t, resp))
}
