package identity

import "golang.org/x/crypto/bcrypt"

// PasswordHasher performs one-way credential hashing.
type PasswordHasher interface {
	Hash(plain string) ([]byte, error)
	// Verify reports whether plain matches digest. A mismatch is not an error.
	Verify(plain string, digest []byte) bool
}

// BcryptHasher hashes credentials with bcrypt at a fixed cost.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, or bcrypt.DefaultCost when cost
// is outside the valid range.
func NewBcryptHasher(cost int) BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptHasher{cost: cost}
}

func (h BcryptHasher) Hash(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), h.cost)
}

func (h BcryptHasher) Verify(plain string, digest []byte) bool {
	if len(digest) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(digest, []byte(plain)) == nil
}
