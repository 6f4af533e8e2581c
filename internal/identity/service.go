package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Service manages the principal lifecycle: signup, credential checks and
// profile maintenance.
type Service struct {
	users        UserRepository
	institutions InstitutionRepository
	resolver     *Resolver
	hasher       PasswordHasher
	validate     *validator.Validate
	now          func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new identity service.
func NewService(users UserRepository, institutions InstitutionRepository, hasher PasswordHasher, opts ...Option) *Service {
	s := &Service{
		users:        users,
		institutions: institutions,
		resolver:     NewResolver(users, institutions),
		hasher:       hasher,
		validate:     newValidator(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolver exposes the priority-ordered principal lookup.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Signup validates the candidate, enforces uniqueness of name, email and phone
// within the user store, hashes the password and persists a USER principal.
func (s *Service) Signup(ctx context.Context, in SignupInput) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)

	verr := validate(s.validate, in)
	if err := s.checkUserUniqueness(ctx, in, verr); err != nil {
		return User{}, err
	}
	if err := verr.orNil(); err != nil {
		return User{}, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := User{
		ID:           uuid.New().String(),
		Name:         in.Name,
		PasswordHash: hash,
		Email:        in.Email,
		Phone:        in.Phone,
		Roles:        []string{RoleUser},
		Profile:      in.Profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return User{}, &ValidationError{Fields: map[string]string{"name": "name is already taken"}}
		}
		return User{}, storeErr("create user", err)
	}
	return user, nil
}

func (s *Service) checkUserUniqueness(ctx context.Context, in SignupInput, verr *ValidationError) error {
	checks := []struct {
		field string
		value string
		msg   string
		exist func(context.Context, string) (bool, error)
	}{
		{"name", in.Name, "name is already taken", s.users.ExistsByName},
		{"email", in.Email, "email is already registered", s.users.ExistsByEmail},
		{"phoneNo", in.Phone, "phone number is already registered", s.users.ExistsByPhone},
	}
	for _, c := range checks {
		if c.value == "" {
			continue
		}
		taken, err := c.exist(ctx, c.value)
		if err != nil {
			return storeErr("check "+c.field, err)
		}
		if taken {
			verr.add(c.field, c.msg)
		}
	}
	return nil
}

// SignupInstitution persists a BANK principal after validating the candidate.
func (s *Service) SignupInstitution(ctx context.Context, in InstitutionSignupInput) (Institution, error) {
	in.Name = strings.TrimSpace(in.Name)

	verr := validate(s.validate, in)
	if in.Name != "" {
		taken, err := s.institutions.ExistsByName(ctx, in.Name)
		if err != nil {
			return Institution{}, storeErr("check bankName", err)
		}
		if taken {
			verr.add("bankName", "bank name is already taken")
		}
	}
	if err := verr.orNil(); err != nil {
		return Institution{}, err
	}

	hash, err := s.hasher.Hash(in.Credential)
	if err != nil {
		return Institution{}, fmt.Errorf("hash credential: %w", err)
	}

	now := s.now().UTC()
	inst := Institution{
		ID:             uuid.New().String(),
		Name:           in.Name,
		CredentialHash: hash,
		Roles:          []string{RoleBank},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.institutions.Create(ctx, inst); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return Institution{}, &ValidationError{Fields: map[string]string{"bankName": "bank name is already taken"}}
		}
		return Institution{}, storeErr("create institution", err)
	}
	return inst, nil
}

// Authenticate resolves name in priority order and checks the secret. Unknown
// names and wrong secrets both yield ErrInvalidCredentials. Nothing is written.
func (s *Service) Authenticate(ctx context.Context, name, secret string) (Principal, error) {
	principal, err := s.resolver.Resolve(ctx, name)
	if errors.Is(err, ErrPrincipalNotFound) {
		return Principal{}, ErrInvalidCredentials
	}
	if err != nil {
		return Principal{}, err
	}
	if !s.hasher.Verify(secret, principal.SecretHash) {
		return Principal{}, ErrInvalidCredentials
	}
	return principal, nil
}

// GetUser loads a user by name.
func (s *Service) GetUser(ctx context.Context, name string) (User, error) {
	user, err := s.users.FindByName(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return User{}, storeErr("find user", err)
	}
	return user, err
}

// SaveUser persists user, stamping its update time.
func (s *Service) SaveUser(ctx context.Context, user User) error {
	user.UpdatedAt = s.now().UTC()
	if err := s.users.Save(ctx, user); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return storeErr("save user", err)
	}
	return nil
}

// UpdateUser applies the mutable contact and profile fields. The name and the
// verification flags are never touched here.
func (s *Service) UpdateUser(ctx context.Context, name string, upd UserUpdate) (User, error) {
	if err := validate(s.validate, upd).orNil(); err != nil {
		return User{}, err
	}
	user, err := s.GetUser(ctx, name)
	if err != nil {
		return User{}, err
	}

	verr := &ValidationError{}
	if upd.Email != nil {
		email := strings.TrimSpace(*upd.Email)
		if email != "" && email != user.Email {
			if taken, err := s.users.ExistsByEmail(ctx, email); err != nil {
				return User{}, storeErr("check email", err)
			} else if taken {
				verr.add("email", "email is already registered")
			}
		}
		user.Email = email
	}
	if upd.Phone != nil {
		phone := strings.TrimSpace(*upd.Phone)
		if phone != "" && phone != user.Phone {
			if taken, err := s.users.ExistsByPhone(ctx, phone); err != nil {
				return User{}, storeErr("check phoneNo", err)
			} else if taken {
				verr.add("phoneNo", "phone number is already registered")
			}
		}
		user.Phone = phone
	}
	if err := verr.orNil(); err != nil {
		return User{}, err
	}
	if upd.Profile != nil {
		user.Profile = *upd.Profile
	}

	if err := s.SaveUser(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// DeleteUser removes the user record by name.
func (s *Service) DeleteUser(ctx context.Context, name string) error {
	if err := s.users.DeleteByName(ctx, name); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return storeErr("delete user", err)
	}
	return nil
}

// ListUsers returns every user record.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, storeErr("list users", err)
	}
	return users, nil
}

// GetInstitution loads an institution by name.
func (s *Service) GetInstitution(ctx context.Context, name string) (Institution, error) {
	inst, err := s.institutions.FindByName(ctx, name)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Institution{}, storeErr("find institution", err)
	}
	return inst, err
}

// SaveInstitution persists inst, stamping its update time.
func (s *Service) SaveInstitution(ctx context.Context, inst Institution) error {
	inst.UpdatedAt = s.now().UTC()
	if err := s.institutions.Save(ctx, inst); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return storeErr("save institution", err)
	}
	return nil
}
