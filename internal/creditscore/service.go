package creditscore

import (
	"context"
	"fmt"

	"github.com/farmlink/farmlink/internal/identity"
)

// Users is the slice of the identity service used for scoring.
type Users interface {
	GetUser(ctx context.Context, name string) (identity.User, error)
	SaveUser(ctx context.Context, user identity.User) error
}

// Service evaluates a farmer's credit score and records it on the user.
type Service struct {
	users  Users
	scorer Scorer
}

// NewService prepares a scoring service. A nil scorer falls back to StaticScorer.
func NewService(users Users, scorer Scorer) *Service {
	if scorer == nil {
		scorer = StaticScorer{}
	}
	return &Service{users: users, scorer: scorer}
}

// Evaluate scores the named user, stores the result and marks the score verified.
func (s *Service) Evaluate(ctx context.Context, name string) (identity.User, error) {
	user, err := s.users.GetUser(ctx, name)
	if err != nil {
		return identity.User{}, err
	}
	score, err := s.scorer.Score(ctx, RequestFromProfile(user.Profile))
	if err != nil {
		return identity.User{}, fmt.Errorf("score %s: %w", name, err)
	}
	user.CreditScore = score
	user.CreditScoreVerified = true
	if err := s.users.SaveUser(ctx, user); err != nil {
		return identity.User{}, err
	}
	return user, nil
}
