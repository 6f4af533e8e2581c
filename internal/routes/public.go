package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/farmlink/farmlink/internal/auth"
)

// RegisterPublicRoutes wires signup, login and token refresh endpoints.
func RegisterPublicRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
	group := r.Group("/public")
	group.Post("/sign-up", h.Signup)
	group.Post("/bsign-up", h.InstitutionSignup)
	if rateLimiter != nil {
		group.Post("/login", rateLimiter, h.Login)
		group.Post("/blogin", rateLimiter, h.InstitutionLogin)
	} else {
		group.Post("/login", h.Login)
		group.Post("/blogin", h.InstitutionLogin)
	}
	group.Post("/refresh-token", h.Refresh)
}
