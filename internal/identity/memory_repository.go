package identity

import (
	"context"
	"sort"
	"sync"
)

type memoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]User
}

// NewMemoryUserRepository builds an in-memory user store for development and tests.
func NewMemoryUserRepository() UserRepository {
	return &memoryUserRepository{users: make(map[string]User)}
}

func (r *memoryUserRepository) Create(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[user.Name]; exists {
		return ErrAlreadyExists
	}
	r.users[user.Name] = user.Clone()
	return nil
}

func (r *memoryUserRepository) FindByName(_ context.Context, name string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[name]
	if !ok {
		return User{}, ErrNotFound
	}
	return user.Clone(), nil
}

func (r *memoryUserRepository) Save(_ context.Context, user User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.Name]; !ok {
		return ErrNotFound
	}
	r.users[user.Name] = user.Clone()
	return nil
}

func (r *memoryUserRepository) ExistsByName(_ context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[name]
	return ok, nil
}

func (r *memoryUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	return r.any(func(u User) bool { return u.Email == email }), nil
}

func (r *memoryUserRepository) ExistsByPhone(_ context.Context, phone string) (bool, error) {
	return r.any(func(u User) bool { return u.Phone == phone }), nil
}

func (r *memoryUserRepository) any(match func(User) bool) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if match(user) {
			return true
		}
	}
	return false
}

func (r *memoryUserRepository) DeleteByName(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[name]; !ok {
		return ErrNotFound
	}
	delete(r.users, name)
	return nil
}

func (r *memoryUserRepository) List(_ context.Context) ([]User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	users := make([]User, 0, len(r.users))
	for _, user := range r.users {
		users = append(users, user.Clone())
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].Name < users[j].Name
		}
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users, nil
}

type memoryInstitutionRepository struct {
	mu           sync.RWMutex
	institutions map[string]Institution
}

// NewMemoryInstitutionRepository builds an in-memory institution store.
func NewMemoryInstitutionRepository() InstitutionRepository {
	return &memoryInstitutionRepository{institutions: make(map[string]Institution)}
}

func (r *memoryInstitutionRepository) Create(_ context.Context, inst Institution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.institutions[inst.Name]; exists {
		return ErrAlreadyExists
	}
	r.institutions[inst.Name] = inst.Clone()
	return nil
}

func (r *memoryInstitutionRepository) FindByName(_ context.Context, name string) (Institution, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.institutions[name]
	if !ok {
		return Institution{}, ErrNotFound
	}
	return inst.Clone(), nil
}

func (r *memoryInstitutionRepository) Save(_ context.Context, inst Institution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.institutions[inst.Name]; !ok {
		return ErrNotFound
	}
	r.institutions[inst.Name] = inst.Clone()
	return nil
}

func (r *memoryInstitutionRepository) ExistsByName(_ context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.institutions[name]
	return ok, nil
}

func (r *memoryInstitutionRepository) DeleteByName(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.institutions[name]; !ok {
		return ErrNotFound
	}
	delete(r.institutions, name)
	return nil
}
