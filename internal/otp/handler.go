package otp

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/farmlink/farmlink/internal/authctx"
	"github.com/farmlink/farmlink/internal/identity"
)

const invalidOTPMsg = "Invalid OTP "

// Handler exposes the OTP send and verify endpoints for the authenticated user.
type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

type verifyRequest struct {
	OTP *string `json:"otp"`
}

// SendEmail issues a code to the user's email address.
func (h *Handler) SendEmail(c *fiber.Ctx) error {
	return h.send(c, ChannelEmail)
}

// SendPhone issues a code to the user's phone number.
func (h *Handler) SendPhone(c *fiber.Ctx) error {
	return h.send(c, ChannelPhone)
}

func (h *Handler) send(c *fiber.Ctx, ch Channel) error {
	principal := authctx.FromContext(c.UserContext())
	if principal == nil {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	if err := h.engine.Generate(c.UserContext(), principal.Name, ch); err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "user not found")
		}
		return fiber.NewError(http.StatusBadRequest, "Error while Generating OTP ")
	}
	return c.Status(http.StatusOK).SendString("OTP sent")
}

// VerifyEmail checks a code and marks the email address verified.
func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	return h.verify(c, ChannelEmail, "Email verified successfully ")
}

// VerifyPhone checks a code and marks the phone number verified.
func (h *Handler) VerifyPhone(c *fiber.Ctx) error {
	return h.verify(c, ChannelPhone, "Phone Number verified succesfully ")
}

func (h *Handler) verify(c *fiber.Ctx, ch Channel, okMsg string) error {
	principal := authctx.FromContext(c.UserContext())
	if principal == nil {
		return fiber.NewError(http.StatusUnauthorized, "unauthorized")
	}
	var req verifyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	if req.OTP == nil {
		return fiber.NewError(http.StatusBadRequest, invalidOTPMsg)
	}

	err := h.engine.Verify(c.UserContext(), principal.Name, ch, *req.OTP)
	switch {
	case err == nil:
		return c.Status(http.StatusAccepted).SendString(okMsg)
	case errors.Is(err, ErrExpiredChallenge):
		return fiber.NewError(http.StatusExpectationFailed, "OTP is expired please Regenerate it")
	case errors.Is(err, ErrInvalidCode), errors.Is(err, ErrNoChallenge):
		return fiber.NewError(http.StatusBadRequest, invalidOTPMsg)
	case errors.Is(err, identity.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, "user not found")
	default:
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
}
