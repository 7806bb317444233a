// Package handlers contains the HTTP route handlers for the IDPA match API.
// Each exported function is a handler factory: it takes its dependencies and returns
// a fiber.Handler, so nothing is held in package-level state.
package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trentd187/idpa-match/internal/models"
	"github.com/trentd187/idpa-match/internal/scoring"
	"github.com/trentd187/idpa-match/internal/services"
)

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scoring.ErrInvalidInput), errors.Is(err, services.ErrInvalidFilter):
		return fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidStageConfiguration), errors.Is(err, services.ErrShooterNotRegistered):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, services.ErrUnauthorized):
		return fiber.StatusForbidden
	case errors.Is(err, services.ErrScoreNotFound),
		errors.Is(err, services.ErrStageNotFound),
		errors.Is(err, services.ErrTournamentNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, services.ErrDuplicateScore),
		errors.Is(err, services.ErrTournamentNotCompleted),
		errors.Is(err, services.ErrBadgesAlreadyAwarded),
		errors.Is(err, services.ErrTournamentClosed):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes err as {"error": ...}. Known errors are returned verbatim so
// the client can branch on them; anything else is logged and hidden behind a
// generic message.
func respondError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("[api] %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}

	body := fiber.Map{"error": err.Error()}
	if errors.Is(err, services.ErrDuplicateScore) {
		// Tell the scorer's device where to go instead.
		body["use"] = "PATCH /api/v1/scores/:id"
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

// paramUUID parses a UUID route parameter.
func paramUUID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

// actorFrom reads the user the Auth middleware stored in c.Locals.
func actorFrom(c *fiber.Ctx) (services.Actor, bool) {
	idStr, _ := c.Locals("userID").(string)
	role, _ := c.Locals("userRole").(string)
	id, err := uuid.Parse(idStr)
	if err != nil {
		return services.Actor{}, false
	}
	return services.Actor{UserID: id, Role: models.UserRole(role)}, true
}
