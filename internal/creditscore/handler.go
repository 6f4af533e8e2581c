package creditscore

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/farmlink/farmlink/internal/authctx"
	"github.com/farmlink/farmlink/internal/identity"
)

// Handler exposes credit score evaluation.
type Handler struct {
	service *Service
}

// NewHandler constructs a credit score handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type scoreResponse struct {
	Name                string  `json:"name"`
	CreditScore         float64 `json:"creditScore"`
	CreditScoreVerified bool    `json:"creditScoreVerified"`
}

type farmerRequest struct {
	Name string `json:"name"`
}

// ForSelf scores the authenticated user.
func (h *Handler) ForSelf(c *fiber.Ctx) error {
	principal := authctx.FromContext(c.UserContext())
	if principal == nil {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	return h.evaluate(c, principal.Name)
}

// ForFarmer scores the farmer named in the request body.
func (h *Handler) ForFarmer(c *fiber.Ctx) error {
	var req farmerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return fiber.NewError(http.StatusBadRequest, "name is required")
	}
	return h.evaluate(c, name)
}

func (h *Handler) evaluate(c *fiber.Ctx, name string) error {
	user, err := h.service.Evaluate(c.UserContext(), name)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "User not found")
		case errors.Is(err, ErrMissingScore):
			return fiber.NewError(http.StatusBadRequest, "Credit score not found in response")
		case errors.Is(err, ErrUpstream):
			return fiber.NewError(http.StatusBadGateway, "Error from credit score service")
		default:
			return fiber.NewError(http.StatusServiceUnavailable, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(scoreResponse{
		Name:                user.Name,
		CreditScore:         user.CreditScore,
		CreditScoreVerified: user.CreditScoreVerified,
	})
}
