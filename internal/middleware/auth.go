package middleware

import (
	"errors"
	"strings"

	"github.com/coachhub/coachhub-api/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

var errMissingToken = errors.New("missing bearer token")

func AuthRequired(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := claimsFromRequest(c, secret)
		if err != nil {
			message := "Invalid or expired token"
			if errors.Is(err, errMissingToken) {
				message = "Missing authorization header"
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": message,
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

// OptionalAuth sets the identity locals when a valid token is present and lets
// anonymous requests through. A malformed or expired token is still rejected.
func OptionalAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := claimsFromRequest(c, secret)
		switch {
		case errors.Is(err, errMissingToken):
			return c.Next()
		case err != nil:
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Invalid or expired token",
			})
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)

		return c.Next()
	}
}

// claimsFromRequest reads the bearer token from the Authorization header, or from the
// token query parameter for websocket upgrades where browsers cannot set headers.
func claimsFromRequest(c *fiber.Ctx, secret string) (*utils.Claims, error) {
	tokenString := ""
	if authHeader := strings.TrimSpace(c.Get("Authorization")); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return nil, errors.New("invalid authorization header format")
		}
		tokenString = parts[1]
	} else {
		tokenString = strings.TrimSpace(c.Query("token"))
	}

	if tokenString == "" {
		return nil, errMissingToken
	}
	return utils.ValidateToken(tokenString, secret)
}
