package utils

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/planttracer/odb/internal/types"
)

// SuccessResponse sends a standard success response
func SuccessResponse(c *fiber.Ctx, data interface{}, status int) error {
	return c.Status(status).JSON(data)
}

// ErrorResponse sends a standard error response
func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(ErrorResponseStruct{
		Status:    status,
		Message:   message,
		Ok:        false,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		URL:       c.OriginalURL(),
		Type:      errorType,
	})
}

// VersionErrorResponse sends a version conflict error (409)
func VersionErrorResponse(c *fiber.Ctx) error {
	return c.Status(fiber.StatusConflict).JSON(ErrorResponseStruct{
		Status:       fiber.StatusConflict,
		Message:      "E_VERSION - Refresh and reconcile with current version and retry.",
		Ok:           false,
		VersionError: true,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		URL:          c.OriginalURL(),
		Type:         "version",
	})
}

// NotFoundResponse sends a 404 not found response
func NotFoundResponse(c *fiber.Ctx, message string) error {
	return ErrorResponse(c, message, fiber.StatusNotFound, "notFound")
}

// StatusFor maps a store or service error to its HTTP status and error type.
func StatusFor(err error) (int, string) {
	var ce *types.CustomError
	var fe *fiber.Error
	switch {
	case errors.As(err, &ce):
		return ce.Code, ce.Type
	case errors.As(err, &fe):
		return fe.Code, "http"
	case errors.Is(err, types.ErrVersionConflict):
		return fiber.StatusConflict, "version"
	case errors.Is(err, types.ErrInvalidArgument):
		return fiber.StatusBadRequest, "invalidArgument"
	case errors.Is(err, types.ErrInvalidAPIKey):
		return fiber.StatusUnauthorized, "auth.apikey.invalid"
	case errors.Is(err, types.ErrAlreadyExists):
		return fiber.StatusConflict, "alreadyExists"
	case errors.Is(err, types.ErrHasOutstandingResources):
		return fiber.StatusConflict, "outstandingResources"
	case errors.Is(err, types.ErrCourseFull):
		return fiber.StatusConflict, "courseFull"
	case errors.Is(err, types.ErrUnknownUser),
		errors.Is(err, types.ErrUnknownCourse),
		errors.Is(err, types.ErrUnknownMovie):
		return fiber.StatusNotFound, "notFound"
	}
	return fiber.StatusInternalServerError, "unknown"
}

// ErrorResponseStruct defines the schema for error responses
type ErrorResponseStruct struct {
	Status       int    `json:"status"`
	Message      string `json:"message"`
	Ok           bool   `json:"ok"`
	Timestamp    string `json:"timestamp"`
	URL          string `json:"url"`
	Type         string `json:"type,omitempty"`
	VersionError bool   `json:"versionError,omitempty"`
}
