package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"cms-messaging/auth"
	"cms-messaging/domain"
)

const principalKey = "principal"

// Protect rejects requests without a valid bearer token and stores the
// verified principal in the request locals. A missing header is a 403,
// a bad or expired token a 401, matching the dashboard's contract.
func Protect(tokens auth.TokenIssuer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(header, "Bearer ") {
			return c.Status(fiber.StatusForbidden).
				JSON(fiber.Map{"message": "Access denied. No token provided."})
		}

		principal, err := tokens.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).
				JSON(fiber.Map{"message": "Invalid or expired token"})
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// PrincipalFrom returns the principal Protect stored for this request.
func PrincipalFrom(c *fiber.Ctx) domain.Principal {
	principal, _ := c.Locals(principalKey).(domain.Principal)
	return principal
}
