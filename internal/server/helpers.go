package server

import (
	"errors"

	"femcircle/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts the route parameter name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
// Callers should check: if err != nil { return nil }
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid ID"))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// respondServiceError writes err with the status its code maps to.
func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusFor(err), err)
}

// respondOutcome answers a guarded operation: 200 when it applied, 403 when
// the caller was not allowed or the listing was in the wrong state.
func respondOutcome(c *fiber.Ctx, ok bool, err error, message string) error {
	if err != nil {
		return respondServiceError(c, err)
	}
	if !ok {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewForbiddenError("Operation not permitted"))
	}
	return c.JSON(fiber.Map{"success": true, "message": message})
}
