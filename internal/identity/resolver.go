package identity

import (
	"context"
	"errors"
)

// Resolver looks a principal identifier up across both stores. The user store
// is always checked first, so a name shared by a user and an institution
// resolves to the user.
type Resolver struct {
	users        UserRepository
	institutions InstitutionRepository
}

// NewResolver builds a resolver over the two principal stores.
func NewResolver(users UserRepository, institutions InstitutionRepository) *Resolver {
	return &Resolver{users: users, institutions: institutions}
}

// Resolve returns the first principal matching name, ErrPrincipalNotFound when
// neither store has it, or an error wrapping ErrStoreUnavailable.
func (r *Resolver) Resolve(ctx context.Context, name string) (Principal, error) {
	user, err := r.users.FindByName(ctx, name)
	switch {
	case err == nil:
		return principalFromUser(user), nil
	case !errors.Is(err, ErrNotFound):
		return Principal{}, storeErr("resolve user", err)
	}

	inst, err := r.institutions.FindByName(ctx, name)
	switch {
	case err == nil:
		return principalFromInstitution(inst), nil
	case errors.Is(err, ErrNotFound):
		return Principal{}, ErrPrincipalNotFound
	default:
		return Principal{}, storeErr("resolve institution", err)
	}
}
