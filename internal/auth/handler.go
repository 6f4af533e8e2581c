package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/farmlink/farmlink/internal/authctx"
	"github.com/farmlink/farmlink/internal/identity"
)

const invalidCredentialsMsg = "Incorrect username or password"

// Handler exposes the public signup, login and token refresh endpoints.
type Handler struct {
	ids    *identity.Service
	svc    *Service
	logger *slog.Logger
}

func NewHandler(ids *identity.Service, svc *Service, logger *slog.Logger) *Handler {
	return &Handler{ids: ids, svc: svc, logger: logger}
}

type signupRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Phone    string `json:"phoneNo"`
	identity.FarmProfile
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type institutionRequest struct {
	Name       string `json:"bankName"`
	Credential string `json:"bankCredentials"`
}

// Signup registers a user. Validation problems are returned as {"error": msg}.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	_, err := h.ids.Signup(c.UserContext(), identity.SignupInput{
		Name:     req.Name,
		Password: req.Password,
		Email:    req.Email,
		Phone:    req.Phone,
		Profile:  req.FarmProfile,
	})
	if err != nil {
		var verr *identity.ValidationError
		if errors.As(err, &verr) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": verr.Error()})
		}
		h.logger.Error("signup failed", "error", err)
		return fiber.NewError(http.StatusServiceUnavailable, "Error while signing up")
	}
	return c.SendStatus(http.StatusCreated)
}

// InstitutionSignup registers a bank or NBFC.
func (h *Handler) InstitutionSignup(c *fiber.Ctx) error {
	var req institutionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	_, err := h.ids.SignupInstitution(c.UserContext(), identity.InstitutionSignupInput{Name: req.Name, Credential: req.Credential})
	if err != nil {
		var verr *identity.ValidationError
		if errors.As(err, &verr) {
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": verr.Error()})
		}
		h.logger.Error("institution signup failed", "error", err)
		return fiber.NewError(http.StatusServiceUnavailable, "Error while signing up")
	}
	return c.SendStatus(http.StatusCreated)
}

// Login returns a bearer token as a plain text body.
func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.login(c, req.Name, req.Password)
}

// InstitutionLogin accepts the bank credential field names and otherwise
// behaves like Login.
func (h *Handler) InstitutionLogin(c *fiber.Ctx) error {
	var req institutionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.login(c, req.Name, req.Credential)
}

func (h *Handler) login(c *fiber.Ctx, name, secret string) error {
	token, err := h.svc.Login(c.UserContext(), name, secret)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			h.logger.Info("login rejected", "name", name)
			return fiber.NewError(http.StatusUnauthorized, invalidCredentialsMsg)
		}
		h.logger.Error("login failed", "name", name, "error", err)
		return fiber.NewError(http.StatusServiceUnavailable, "login unavailable")
	}
	return c.Status(http.StatusOK).SendString(token.Value)
}

// Refresh issues a new token for the caller identified by the gate.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	principal := authctx.FromContext(c.UserContext())
	if principal == nil {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	token, err := h.svc.Refresh(principal.Name)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).SendString(token.Value)
}
