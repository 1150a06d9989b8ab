package middleware

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/types"
)

const (
	// APIKeyParam is the form, query and cookie name carrying the key.
	APIKeyParam = "api_key"
	// APIKeyHeader is the request header carrying the key.
	APIKeyHeader = "X-Api-Key"

	userLocal = "user"
)

// APIKeyValidator resolves an API key to its enabled user.
type APIKeyValidator interface {
	ValidateAPIKey(ctx context.Context, apiKey string) (*models.User, error)
}

// APIKeyAuth validates the request's API key and stores the owning user in
// the context locals.
func APIKeyAuth(v APIKeyValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := APIKeyFrom(c)
		if key == "" {
			return &types.CustomError{
				Code:    fiber.StatusUnauthorized,
				Message: "API key required",
				Type:    "auth.apikey.missing",
			}
		}

		user, err := v.ValidateAPIKey(c.UserContext(), key)
		if errors.Is(err, types.ErrInvalidAPIKey) {
			return &types.CustomError{
				Code:    fiber.StatusUnauthorized,
				Message: "Invalid API key",
				Type:    "auth.apikey.invalid",
			}
		}
		if err != nil {
			return err
		}

		c.Locals(userLocal, user)
		return c.Next()
	}
}

// APIKeyFrom returns the key from the api_key form or query value, then the
// X-Api-Key header, then the api_key cookie.
func APIKeyFrom(c *fiber.Ctx) string {
	if key := c.FormValue(APIKeyParam); key != "" {
		return key
	}
	if key := c.Get(APIKeyHeader); key != "" {
		return key
	}
	return c.Cookies(APIKeyParam)
}

// User returns the user set by APIKeyAuth, or nil.
func User(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userLocal).(*models.User)
	return user
}
