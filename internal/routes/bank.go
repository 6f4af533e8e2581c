package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/farmlink/farmlink/internal/creditscore"
	"github.com/farmlink/farmlink/internal/identity"
	"github.com/farmlink/farmlink/internal/loans"
	"github.com/farmlink/farmlink/internal/middleware"
)

// BankHandlers groups the handlers served under /Bank.
type BankHandlers struct {
	Identity    *identity.Handler
	Loans       *loans.Handler
	CreditScore *creditscore.Handler
}

// RegisterBankRoutes wires the institution endpoints. Every route requires the BANK role.
func RegisterBankRoutes(r fiber.Router, h BankHandlers) {
	group := r.Group("/Bank", middleware.RequireRole(identity.RoleBank))
	group.Get("/getBankInfo", h.Identity.GetBankInfo)
	group.Get("/getAllFarmers", h.Identity.ListFarmers)
	group.Post("/approveLoan", h.Loans.Approve)
	group.Post("/getCreditScore", h.CreditScore.ForFarmer)
}
