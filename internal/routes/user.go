package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/farmlink/farmlink/internal/creditscore"
	"github.com/farmlink/farmlink/internal/identity"
	"github.com/farmlink/farmlink/internal/middleware"
	"github.com/farmlink/farmlink/internal/otp"
)

// UserHandlers groups the handlers served under /user.
type UserHandlers struct {
	Identity    *identity.Handler
	OTP         *otp.Handler
	CreditScore *creditscore.Handler
}

// RegisterUserRoutes wires the farmer endpoints. Every route requires the USER role.
func RegisterUserRoutes(r fiber.Router, h UserHandlers, otpLimiter fiber.Handler) {
	group := r.Group("/user", middleware.RequireRole(identity.RoleUser))
	group.Get("/getUser", h.Identity.GetUser)
	group.Put("/updateDetails", h.Identity.UpdateDetails)
	group.Delete("/deleteUser", h.Identity.DeleteUser)

	group.Get("/sendOTPEmail", h.OTP.SendEmail)
	group.Get("/sendOTPPhone", h.OTP.SendPhone)
	group.Post("/verifyEmail", otpLimiter, h.OTP.VerifyEmail)
	group.Post("/verifyPhone", otpLimiter, h.OTP.VerifyPhone)

	group.Post("/getCreditScore", h.CreditScore.ForSelf)
}
