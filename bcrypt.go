package account

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used when none is configured
const DefaultBcryptCost = 12

// BcryptHasher hashes passwords with bcrypt. Passwords are reduced to a
// base64 SHA-256 digest first since bcrypt rejects input above 72 bytes.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher using cost, clamped to the bcrypt range
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash will generate a password hash
func (h *BcryptHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}
	out, err := bcrypt.GenerateFromPassword(prehash(password), h.cost)
	return string(out), err
}

// Verify checks password against hash. A mismatch is reported as
// (false, nil), a malformed hash as an error.
func (h *BcryptHasher) Verify(password, hash string) (bool, error) {
	if password == "" || hash == "" {
		return false, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), prehash(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NeedsRehash reports whether hash was produced with another cost
func (h *BcryptHasher) NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return false
	}
	return cost != h.cost
}

func prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}
