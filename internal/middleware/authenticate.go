package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/farmlink/farmlink/internal/authctx"
	"github.com/farmlink/farmlink/internal/identity"
)

const bearerPrefix = "bearer "

// TokenVerifier returns the principal identifier embedded in a valid token.
type TokenVerifier interface {
	Verify(raw string) (string, error)
}

// PrincipalResolver looks an identifier up across the principal stores.
type PrincipalResolver interface {
	Resolve(ctx context.Context, name string) (identity.Principal, error)
}

// Authenticate installs the caller's principal on the request context when a
// valid bearer token is presented. It never rejects a request: a missing,
// invalid or unresolvable token leaves the request anonymous and access
// decisions are made downstream. Running it twice is harmless.
func Authenticate(verifier TokenVerifier, resolver PrincipalResolver, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if authctx.FromContext(c.UserContext()) != nil {
			return c.Next()
		}

		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			return c.Next()
		}

		name, err := verifier.Verify(raw)
		if err != nil {
			logger.Debug("bearer token rejected", slog.String("path", c.Path()), slog.Any("error", err))
			return c.Next()
		}

		principal, err := resolver.Resolve(c.UserContext(), name)
		if err != nil {
			if errors.Is(err, identity.ErrPrincipalNotFound) {
				logger.Debug("token subject not found", slog.String("subject", name))
			} else {
				logger.Warn("principal resolution failed", slog.String("subject", name), slog.Any("error", err))
			}
			return c.Next()
		}

		c.SetUserContext(authctx.WithPrincipal(c.UserContext(), &authctx.Principal{
			Name:  principal.Name,
			Kind:  string(principal.Kind),
			Roles: principal.Roles,
		}))
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	if len(header) <= len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}
