package loans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/farmlink/farmlink/internal/identity"
	"github.com/farmlink/farmlink/internal/notification"
)

var (
	ErrBankNotFound   = errors.New("bank not found")
	ErrFarmerNotFound = errors.New("farmer not found")
)

// Records is the slice of the identity service loan approval needs.
type Records interface {
	GetUser(ctx context.Context, name string) (identity.User, error)
	SaveUser(ctx context.Context, user identity.User) error
	GetInstitution(ctx context.Context, name string) (identity.Institution, error)
	SaveInstitution(ctx context.Context, inst identity.Institution) error
}

// Service records loan approvals between institutions and farmers.
type Service struct {
	records  Records
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a loan service.
func NewService(records Records, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{records: records, notifier: notifier, logger: logger}
}

// ApproveLoan marks farmer's loan approved by bank, links both records and
// emails the farmer. The alert is best effort: a send failure is logged and
// the approval still stands.
func (s *Service) ApproveLoan(ctx context.Context, bank, farmer string) (identity.User, error) {
	farmer = strings.TrimSpace(farmer)
	if farmer == "" {
		return identity.User{}, fmt.Errorf("%w: name is required", ErrFarmerNotFound)
	}

	inst, err := s.records.GetInstitution(ctx, bank)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.User{}, ErrBankNotFound
		}
		return identity.User{}, err
	}
	user, err := s.records.GetUser(ctx, farmer)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.User{}, ErrFarmerNotFound
		}
		return identity.User{}, err
	}

	user.LoanApproved = true
	user.History = append(user.History, inst.Name)
	if err := s.records.SaveUser(ctx, user); err != nil {
		return identity.User{}, err
	}

	if !slices.Contains(inst.ApprovedUsers, user.Name) {
		inst.ApprovedUsers = append(inst.ApprovedUsers, user.Name)
		if err := s.records.SaveInstitution(ctx, inst); err != nil {
			return identity.User{}, err
		}
	}

	s.sendAlert(ctx, user, inst.Name)
	return user, nil
}

func (s *Service) sendAlert(ctx context.Context, user identity.User, bank string) {
	if s.notifier == nil {
		return
	}
	if user.Email == "" {
		s.logger.Warn("loan approval alert skipped, no email on file", "farmer", user.Name, "bank", bank)
		return
	}
	if err := s.notifier.Send(ctx, notification.LoanApprovalEmail(user.Email, user.Name, bank)); err != nil {
		s.logger.Error("loan approval alert failed", "farmer", user.Name, "bank", bank, "error", err)
	}
}
