package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planttracer/odb/internal/types"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err      error
		status   int
		wantType string
	}{
		{&types.CustomError{Code: 401, Message: "no", Type: "auth"}, 401, "auth"},
		{fiber.ErrMethodNotAllowed, 405, "http"},
		{fmt.Errorf("swap: %w", types.ErrVersionConflict), 409, "version"},
		{fmt.Errorf("bad email: %w", types.ErrInvalidArgument), 400, "invalidArgument"},
		{types.ErrInvalidAPIKey, 401, "auth.apikey.invalid"},
		{&types.AlreadyExistsError{Resource: "email", Key: "a@b.c"}, 409, "alreadyExists"},
		{&types.OutstandingResourcesError{Resource: "movies", Count: 2}, 409, "outstandingResources"},
		{types.ErrCourseFull, 409, "courseFull"},
		{types.ErrUnknownUser, 404, "notFound"},
		{types.ErrUnknownCourse, 404, "notFound"},
		{types.ErrUnknownMovie, 404, "notFound"},
		{errors.New("boom"), 500, "unknown"},
	}
	for _, tt := range tests {
		status, errType := StatusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.wantType, errType, tt.err.Error())
	}
}

func TestErrorResponse(t *testing.T) {
	app := fiber.New()
	app.Get("/x", func(c *fiber.Ctx) error {
		return ErrorResponse(c, "nope", fiber.StatusTeapot, "tea")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/x?y=1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

	var got ErrorResponseStruct
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, fiber.StatusTeapot, got.Status)
	assert.Equal(t, "nope", got.Message)
	assert.False(t, got.Ok)
	assert.Equal(t, "/x?y=1", got.URL)
	assert.Equal(t, "tea", got.Type)
	assert.NotEmpty(t, got.Timestamp)
}

func TestVersionErrorResponse(t *testing.T) {
	app := fiber.New()
	app.Get("/v", VersionErrorResponse)

	resp, err := app.Test(httptest.NewRequest("GET", "/v", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	var got ErrorResponseStruct
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.True(t, got.VersionError)
	assert.Equal(t, "version", got.Type)
}
