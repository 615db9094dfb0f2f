package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
)

// AuthMiddleware provides mock Bearer token authentication.
// Any non-empty Bearer token is considered valid. Paths starting with one of
// publicPrefixes bypass authentication.
func AuthMiddleware(publicPrefixes ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		path := c.Path()

		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(path, prefix) {
				return c.Next()
			}
		}

		authHeader := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing Authorization header",
			})
		}

		// Trailing whitespace is trimmed, so "Bearer " arrives as a bare scheme.
		var token string
		if authHeader != "Bearer" {
			rest, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "invalid Authorization header format, expected 'Bearer <token>'",
				})
			}
			token = strings.TrimSpace(rest)
		}
		if token == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "empty bearer token",
			})
		}

		// Mock validation: any non-empty token is accepted.
		c.Locals("auth_token", token)

		return c.Next()
	}
}
