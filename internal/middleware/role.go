package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/farmlink/farmlink/internal/authctx"
)

// RequireRole rejects anonymous requests with 401 and principals lacking role with 403.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := authctx.FromContext(c.UserContext())
		if principal == nil {
			return fiber.NewError(http.StatusUnauthorized, "unauthorized")
		}
		if !principal.HasRole(role) {
			return fiber.NewError(http.StatusForbidden, "forbidden")
		}
		return c.Next()
	}
}
