package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/planttracer/odb/internal/middleware"
	"github.com/planttracer/odb/internal/models"
)

// CheckAPIKeyResponse is the body of a successful key check.
type CheckAPIKeyResponse struct {
	Ok   bool         `json:"ok"`
	User *models.User `json:"user"`
}

// CheckAPIKey handles GET|POST /api/check-api-key behind middleware.APIKeyAuth
// @Summary Check an API key
// @Description Validate the API key and return its user. The key is read from the api_key form or query value, the X-Api-Key header, or the api_key cookie.
// @Tags Auth
// @Accept x-www-form-urlencoded
// @Produce json
// @Param api_key query string false "API key"
// @Success 200 {object} CheckAPIKeyResponse
// @Failure 401 {object} utils.ErrorResponseStruct
// @Failure 500 {object} utils.ErrorResponseStruct
// @Security APIKeyAuth
// @Router /check-api-key [get]
// @Router /check-api-key [post]
func CheckAPIKey(c *fiber.Ctx) error {
	return c.JSON(CheckAPIKeyResponse{Ok: true, User: middleware.User(c)})
}
