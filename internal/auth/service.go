package auth

import (
	"context"

	"github.com/farmlink/farmlink/internal/identity"
)

// Authenticator checks a principal's credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, name, secret string) (identity.Principal, error)
}

// Service turns successful credential checks into bearer tokens.
type Service struct {
	ids   Authenticator
	codec *Codec
}

func NewService(ids Authenticator, codec *Codec) *Service {
	return &Service{ids: ids, codec: codec}
}

// Login authenticates name in the fixed user-then-institution order and issues
// a token for the resolved identifier. The token does not record the kind.
func (s *Service) Login(ctx context.Context, name, secret string) (Token, error) {
	principal, err := s.ids.Authenticate(ctx, name, secret)
	if err != nil {
		return Token{}, err
	}
	return s.codec.Issue(principal.Name)
}

// Refresh issues a fresh token for an already authenticated principal.
// Previously issued tokens stay valid until they expire.
func (s *Service) Refresh(name string) (Token, error) {
	return s.codec.Issue(name)
}
