// common.go
//
// Plant Tracer object and record store
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of odb.
// odb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// odb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with odb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/planttracer/odb/internal/types"
	"github.com/planttracer/odb/internal/utils"
)

// ErrorHandler renders every error returned by a handler or middleware in
// the standard error shape.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if errors.Is(err, types.ErrVersionConflict) {
			return utils.VersionErrorResponse(c)
		}

		status, errorType := utils.StatusFor(err)
		message := err.Error()

		var ce *types.CustomError
		var fe *fiber.Error
		switch {
		case errors.As(err, &ce):
			message = ce.Message
		case errors.As(err, &fe):
			message = fe.Message
		}

		if status >= fiber.StatusInternalServerError {
			log.Error("Request failed",
				zap.String("method", c.Method()),
				zap.String("url", c.OriginalURL()),
				zap.Error(err))
		}
		return utils.ErrorResponse(c, message, status, errorType)
	}
}

// NotFound is the terminal handler for unmatched routes.
func NotFound(c *fiber.Ctx) error {
	return utils.NotFoundResponse(c, "[404] Resource Not Found")
}
