package middleware

// roles.go: Role-based access control middleware.
// Roles are admin, match_director, safety_officer and shooter. Route-level checks
// happen here; the score service checks the scoring roles again on every write.

import (
	"github.com/gofiber/fiber/v2"

	"github.com/trentd187/idpa-match/internal/models"
)

// RequireRole returns a middleware handler that allows only users whose role
// matches one of the provided roles. Returns HTTP 403 Forbidden otherwise.
//
//	api.Post("/tournaments/:id/complete", middleware.RequireRole(models.UserRoleAdmin, models.UserRoleMatchDirector), ...)
//
// RequireRole must be used AFTER the Auth middleware, because Auth is what
// populates "userRole" in c.Locals.
func RequireRole(roles ...models.UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userRole, ok := c.Locals("userRole").(string)
		if !ok || userRole == "" {
			// Auth was not applied or did not set a role.
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "forbidden",
			})
		}

		for _, role := range roles {
			if userRole == string(role) {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "insufficient permissions",
		})
	}
}

// RequireScorer allows the roles that may record scores.
func RequireScorer() fiber.Handler {
	return RequireRole(models.UserRoleAdmin, models.UserRoleMatchDirector, models.UserRoleSafetyOfficer)
}
