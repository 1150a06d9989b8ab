package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/planttracer/odb/internal/middleware"
	"github.com/planttracer/odb/internal/models"
	"github.com/planttracer/odb/internal/services"
	"github.com/planttracer/odb/internal/types"
)

const (
	defaultLogLimit = 1000
	maxLogLimit     = 10000
)

// LogsHandler serves the audit log to authenticated users.
type LogsHandler struct {
	Logs *services.LogService
}

// LogsResponse is the body of a log query.
type LogsResponse struct {
	Ok   bool              `json:"ok"`
	Logs []models.LogEntry `json:"logs"`
}

// GetLogs handles GET /api/logs behind middleware.APIKeyAuth
// @Summary Query the audit log
// @Description Entries visible to the caller. Non-admins see only their own entries.
// @Tags Logs
// @Produce json
// @Param start_time query int false "Earliest time_t"
// @Param end_time query int false "Latest time_t"
// @Param course_id query string false "Course ID"
// @Param course_key query string false "Course key"
// @Param movie_id query string false "Movie ID"
// @Param log_user_id query string false "User the entries are about"
// @Param ipaddr query string false "Client address"
// @Param limit query int false "Maximum entries returned"
// @Success 200 {object} LogsResponse
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 401 {object} utils.ErrorResponseStruct
// @Security APIKeyAuth
// @Router /logs [get]
func (h *LogsHandler) GetLogs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultLogLimit)
	if limit < 1 || limit > maxLogLimit {
		return &types.CustomError{
			Code:    fiber.StatusBadRequest,
			Message: "limit must be between 1 and 10000",
			Type:    "invalidArgument",
		}
	}

	q := services.LogQuery{
		UserID:    middleware.User(c).UserID,
		Security:  true,
		StartTime: int64(c.QueryInt("start_time")),
		EndTime:   int64(c.QueryInt("end_time")),
		CourseID:  c.Query("course_id"),
		CourseKey: c.Query("course_key"),
		MovieID:   c.Query("movie_id"),
		LogUserID: c.Query("log_user_id"),
		IPAddr:    c.Query("ipaddr"),
	}

	logs := make([]models.LogEntry, 0)
	for entry, err := range h.Logs.GetLogs(c.UserContext(), q) {
		if err != nil {
			return err
		}
		logs = append(logs, entry)
		if len(logs) == limit {
			break
		}
	}
	return c.JSON(LogsResponse{Ok: true, Logs: logs})
}
