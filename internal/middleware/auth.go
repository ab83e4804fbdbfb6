// Package middleware provides authentication and observability middleware.
package middleware

import (
	"strings"

	"localmade/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// AuthRequired enforces a valid session for protected routes and stores the
// session in locals for the handlers.
func AuthRequired(sessions *auth.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header required",
			})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header format",
			})
		}

		session, err := sessions.GetSession(parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("session", session)
		c.Locals("userID", session.UserID)
		return c.Next()
	}
}
