package middleware

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/models"
)

// LogRecorder appends entries to the access log.
type LogRecorder interface {
	AddLog(ctx context.Context, entry models.LogEntry) (*models.LogEntry, error)
}

// AuditLog records one log entry per request made by an authenticated user.
// It must run after APIKeyAuth. The entry is written once the handler returns,
// and a failed write does not fail the request.
func AuditLog(r LogRecorder, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		user := User(c)
		if user == nil {
			return err
		}
		entry := models.LogEntry{
			UserID:  user.UserID,
			IPAddr:  c.IP(),
			Message: c.Method() + " " + c.Path(),
		}
		if _, logErr := r.AddLog(c.UserContext(), entry); logErr != nil {
			log.Warn("Failed to record access",
				zap.String("user_id", user.UserID),
				zap.String("path", c.Path()),
				zap.Error(logErr))
		}
		return err
	}
}
