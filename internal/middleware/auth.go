// Package middleware contains HTTP middleware functions for the IDPA match API.
// Middleware sits between the HTTP server and route handlers and runs on every
// request that passes through it: authentication and role checks live here.
package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/trentd187/idpa-match/internal/config"
	"github.com/trentd187/idpa-match/internal/models"
)

// Claims is the payload we expect in the identity provider's JWT.
// Subject is the provider's user id; role, email and name are custom claims
// configured in the provider's token template:
//
//	"role":  "safety_officer"
//	"email": "jane@example.com"
//	"name":  "Jane Shooter"
type Claims struct {
	jwt.RegisteredClaims
	Role  string `json:"role"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Auth returns a Fiber middleware handler that:
//  1. Validates the JWT from the "Authorization: Bearer <token>" header
//  2. Finds the matching user in our database (or creates one on first visit)
//  3. Syncs the user's role from the JWT into the database
//  4. Stores the user's internal UUID and role in c.Locals for the handlers
//
// With cfg.JWTSecret set the token must be HS256-signed with that key. Without it
// the signature is not checked at all, which is only acceptable in development.
func Auth(cfg *config.Config, db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing or invalid authorization header",
			})
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := parseClaims(tokenStr, cfg.JWTSecret)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid token",
			})
		}

		externalID := claims.Subject
		if externalID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "token missing subject",
			})
		}

		user, err := syncUser(db.WithContext(c.UserContext()), externalID, claims)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "database error",
			})
		}

		c.Locals("userID", user.ID.String())
		c.Locals("userRole", string(user.Role))
		return c.Next()
	}
}

func parseClaims(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	if secret == "" {
		if _, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims); err != nil {
			return nil, err
		}
		return claims, nil
	}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token is not valid")
	}
	return claims, nil
}

// syncUser is the lazy user sync: the first authenticated request creates the user
// row, later ones look it up and follow role changes made at the identity provider.
func syncUser(db *gorm.DB, externalID string, claims *Claims) (*models.User, error) {
	role := roleFromClaim(claims.Role)

	var user models.User
	err := db.Where("external_id = ?", externalID).First(&user).Error
	switch {
	case err == nil:
		if claims.Role != "" && user.Role != role {
			if err := db.Model(&user).Update("role", role).Error; err != nil {
				return nil, err
			}
			user.Role = role
		}
		return &user, nil

	case errors.Is(err, gorm.ErrRecordNotFound):
		email := claims.Email
		if email == "" {
			// Deterministic placeholder until the token template carries the email.
			email = fmt.Sprintf("%s@users.invalid", externalID)
		}
		name := claims.Name
		if name == "" {
			name = "Shooter"
		}
		user = models.User{
			ExternalID:  &externalID,
			DisplayName: name,
			Email:       email,
			Role:        role,
		}
		if err := db.Create(&user).Error; err != nil {
			return nil, err
		}
		return &user, nil

	default:
		return nil, err
	}
}

// roleFromClaim converts the raw role claim into a UserRole.
// Missing or unrecognised roles get the least privileged role, shooter.
func roleFromClaim(s string) models.UserRole {
	switch r := models.UserRole(s); r {
	case models.UserRoleAdmin, models.UserRoleMatchDirector, models.UserRoleSafetyOfficer:
		return r
	default:
		return models.UserRoleShooter
	}
}
