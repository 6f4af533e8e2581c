package loans

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/farmlink/farmlink/internal/authctx"
	"github.com/farmlink/farmlink/internal/identity"
)

// Handler exposes loan approval for institutions.
type Handler struct {
	service *Service
}

// NewHandler constructs a loan handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type approveRequest struct {
	Name string `json:"name"`
}

// Approve records the authenticated bank's approval of the named farmer's loan.
func (h *Handler) Approve(c *fiber.Ctx) error {
	principal := authctx.FromContext(c.UserContext())
	if principal == nil {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	user, err := h.service.ApproveLoan(c.UserContext(), principal.Name, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, ErrBankNotFound):
			return fiber.NewError(http.StatusBadRequest, "Bank not found")
		case errors.Is(err, ErrFarmerNotFound):
			return fiber.NewError(http.StatusNotFound, "Farmer not found")
		default:
			return fiber.NewError(http.StatusBadRequest, "Error while approving loan")
		}
	}
	return c.Status(http.StatusAccepted).JSON(identity.NewUserResponse(user))
}
