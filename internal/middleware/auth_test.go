package middleware_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planttracer/odb/internal/middleware"
	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/types"
)

const goodKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type fakeValidator struct {
	calls int
	err   error
}

func (f *fakeValidator) ValidateAPIKey(_ context.Context, apiKey string) (*models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if apiKey != goodKey {
		return nil, types.ErrInvalidAPIKey
	}
	return &models.User{UserID: "u1", Email: "a@b.c", Enabled: 1}, nil
}

func setupApp(v middleware.APIKeyValidator) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var ce *types.CustomError
			if errors.As(err, &ce) {
				return c.Status(ce.Code).SendString(ce.Type)
			}
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
	})
	app.All("/check", middleware.APIKeyAuth(v), func(c *fiber.Ctx) error {
		return c.SendString(middleware.User(c).UserID)
	})
	return app
}

func body(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestAPIKeyAuth_Sources(t *testing.T) {
	form := url.Values{middleware.APIKeyParam: {goodKey}}

	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{"query", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/check?api_key="+goodKey, nil)
		}},
		{"form", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return req
		}},
		{"header", func() *http.Request {
			req := httptest.NewRequest(http.MethodGet, "/check", nil)
			req.Header.Set(middleware.APIKeyHeader, goodKey)
			return req
		}},
		{"cookie", func() *http.Request {
			req := httptest.NewRequest(http.MethodGet, "/check", nil)
			req.AddCookie(&http.Cookie{Name: middleware.APIKeyParam, Value: goodKey})
			return req
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := setupApp(&fakeValidator{})
			resp, err := app.Test(tt.req())
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusOK, resp.StatusCode)
			assert.Equal(t, "u1", body(t, resp))
		})
	}
}

func TestAPIKeyAuth_Missing(t *testing.T) {
	v := &fakeValidator{}
	resp, err := setupApp(v).Test(httptest.NewRequest(http.MethodGet, "/check", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "auth.apikey.missing", body(t, resp))
	assert.Zero(t, v.calls)
}

func TestAPIKeyAuth_Invalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	req.Header.Set(middleware.APIKeyHeader, strings.Repeat("f", 64))

	resp, err := setupApp(&fakeValidator{}).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "auth.apikey.invalid", body(t, resp))
}

func TestAPIKeyAuth_StoreFailure(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/check", nil)
	req.Header.Set(middleware.APIKeyHeader, goodKey)

	resp, err := setupApp(&fakeValidator{err: errors.New("store down")}).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "store down", body(t, resp))
}
