package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trentd187/idpa-match/internal/models"
)

func appWithRole(role string, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if role != "" {
			c.Locals("userRole", role)
		}
		return c.Next()
	})
	app.Get("/", guard, func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	return app
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		role     string
		expected int
	}{
		{"admin", fiber.StatusNoContent},
		{"match_director", fiber.StatusNoContent},
		{"safety_officer", fiber.StatusForbidden},
		{"shooter", fiber.StatusForbidden},
		{"", fiber.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run("role "+tt.role, func(t *testing.T) {
			app := appWithRole(tt.role, RequireRole(models.UserRoleAdmin, models.UserRoleMatchDirector))

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil))

			require.NoError(t, err)
			assert.Equal(t, tt.expected, resp.StatusCode)
		})
	}
}

func TestRequireScorer(t *testing.T) {
	for role, expected := range map[string]int{
		"safety_officer": fiber.StatusNoContent,
		"shooter":        fiber.StatusForbidden,
	} {
		resp, err := appWithRole(role, RequireScorer()).Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, expected, resp.StatusCode, role)
	}
}

func TestRoleFromClaim(t *testing.T) {
	assert.Equal(t, models.UserRoleSafetyOfficer, roleFromClaim("safety_officer"))
	assert.Equal(t, models.UserRoleShooter, roleFromClaim(""))
	assert.Equal(t, models.UserRoleShooter, roleFromClaim("superuser"))
}

func signed(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestParseClaims(t *testing.T) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user_123"},
		Role:             "match_director",
	}

	t.Run("verified", func(t *testing.T) {
		got, err := parseClaims(signed(t, "s3cret", claims), "s3cret")
		require.NoError(t, err)
		assert.Equal(t, "user_123", got.Subject)
		assert.Equal(t, "match_director", got.Role)
	})

	t.Run("wrong key", func(t *testing.T) {
		_, err := parseClaims(signed(t, "other", claims), "s3cret")
		assert.Error(t, err)
	})

	t.Run("unverified in development", func(t *testing.T) {
		got, err := parseClaims(signed(t, "anything", claims), "")
		require.NoError(t, err)
		assert.Equal(t, "user_123", got.Subject)
	})
}
