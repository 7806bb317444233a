package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/trentd187/idpa-match/internal/badges"
)

// BadgeDeriver is the part of services.BadgeService the badge route uses.
type BadgeDeriver interface {
	DeriveBadges(ctx context.Context, tournamentID uuid.UUID) ([]badges.Eligibility, error)
}

// DeriveBadges handles POST /api/v1/tournaments/:id/badges.
// Normally the background sweep awards badges; this route lets a match director do
// it straight after closing the match.
func DeriveBadges(svc BadgeDeriver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tournamentID, err := paramUUID(c, "id")
		if err != nil {
			return badRequest(c, "invalid tournament id")
		}
		awarded, err := svc.DeriveBadges(c.UserContext(), tournamentID)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"tournament_id": tournamentID,
			"badges":        awarded,
		})
	}
}
