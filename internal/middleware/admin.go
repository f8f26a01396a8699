package middleware

import (
	"github.com/ahmetcoskunkizilkaya/account-service/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// RequireAuth rejects anonymous requests with 401.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFrom(c); !ok {
			return unauthorized(c)
		}
		return c.Next()
	}
}

// RequireRole rejects anonymous requests with 401 and authenticated requests
// carrying a different role with 403.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFrom(c)
		if !ok {
			return unauthorized(c)
		}
		if identity.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Success: false, Message: "Insufficient privileges",
			})
		}
		return c.Next()
	}
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
		Success: false, Message: "Authentication required",
	})
}
