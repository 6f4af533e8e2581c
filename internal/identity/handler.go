package identity

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/farmlink/farmlink/internal/authctx"
)

// Handler exposes the profile endpoints for authenticated principals.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// UserResponse is the public view of a user record. Credential hashes and
// pending OTP values are never serialised.
type UserResponse struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Email               string   `json:"email"`
	Phone               string   `json:"phoneNo"`
	Roles               []string `json:"roles"`
	EmailVerified       bool     `json:"emailVerified"`
	PhoneVerified       bool     `json:"phoneVerified"`
	CreditScoreVerified bool     `json:"creditScoreVerified"`
	CreditScore         float64  `json:"creditScore"`
	LoanApproved        bool     `json:"loanApproved"`
	History             []string `json:"history"`
	FarmProfile
}

// NewUserResponse builds the public view of user.
func NewUserResponse(user User) UserResponse {
	return UserResponse{
		ID:                  user.ID,
		Name:                user.Name,
		Email:               user.Email,
		Phone:               user.Phone,
		Roles:               nonNil(user.Roles),
		EmailVerified:       user.EmailVerified,
		PhoneVerified:       user.PhoneVerified,
		CreditScoreVerified: user.CreditScoreVerified,
		CreditScore:         user.CreditScore,
		LoanApproved:        user.LoanApproved,
		History:             nonNil(user.History),
		FarmProfile:         user.Profile,
	}
}

type institutionResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"bankName"`
	Roles         []string `json:"roles"`
	ApprovedUsers []string `json:"loansApproved"`
}

type updateRequest struct {
	Email *string `json:"email"`
	Phone *string `json:"phoneNo"`
	*FarmProfile
}

// GetUser returns the authenticated user's record.
func (h *Handler) GetUser(c *fiber.Ctx) error {
	principal := authctx.FromContext(c.UserContext())
	if principal == nil {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	user, err := h.service.GetUser(c.UserContext(), principal.Name)
	if err != nil {
		return lookupError(err, "user not found")
	}
	return c.Status(http.StatusOK).JSON(NewUserResponse(user))
}

// UpdateDetails changes the authenticated user's contact and farm details.
func (h *Handler) UpdateDetails(c *fiber.Ctx) error {
	principal := authctx.FromContext(c.UserContext())
	if principal == nil {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	user, err := h.service.UpdateUser(c.UserContext(), principal.Name, UserUpdate{Email: req.Email, Phone: req.Phone, Profile: req.FarmProfile})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return fiber.NewError(http.StatusBadRequest, verr.Error())
		}
		return lookupError(err, "user not found")
	}
	return c.Status(http.StatusOK).JSON(NewUserResponse(user))
}

// DeleteUser removes the authenticated user's record.
func (h *Handler) DeleteUser(c *fiber.Ctx) error {
	principal := authctx.FromContext(c.UserContext())
	if principal == nil {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	if err := h.service.DeleteUser(c.UserContext(), principal.Name); err != nil {
		return lookupError(err, "user not found")
	}
	return c.SendStatus(http.StatusNoContent)
}

// GetBankInfo returns the authenticated institution's record.
func (h *Handler) GetBankInfo(c *fiber.Ctx) error {
	principal := authctx.FromContext(c.UserContext())
	if principal == nil {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	inst, err := h.service.GetInstitution(c.UserContext(), principal.Name)
	if err != nil {
		return lookupError(err, "bank not found")
	}
	return c.Status(http.StatusOK).JSON(institutionResponse{
		ID:            inst.ID,
		Name:          inst.Name,
		Roles:         nonNil(inst.Roles),
		ApprovedUsers: nonNil(inst.ApprovedUsers),
	})
}

// ListFarmers returns every user record.
func (h *Handler) ListFarmers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, NewUserResponse(u))
	}
	return c.Status(http.StatusOK).JSON(out)
}

func lookupError(err error, notFound string) error {
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(http.StatusNotFound, notFound)
	}
	return fiber.NewError(http.StatusServiceUnavailable, err.Error())
}
