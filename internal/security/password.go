package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used for stored passwords.
const DefaultCost = 10

var ErrEmptyPassword = errors.New("password cannot be empty")

// Hasher hashes and verifies passwords with bcrypt. The cost is injectable so
// tests can run at bcrypt.MinCost.
type Hasher struct {
	cost int
}

func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}

	return &Hasher{cost: cost}
}

// Hash password hashes a plain text password with a random salt.
func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify reports whether plain matches hash. A mismatch is (false, nil); an
// error means the stored hash itself is unusable.
func (h *Hasher) Verify(plain, hash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))

	if err == nil {
		return true, nil
	}

	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, err
}
