package account

import "golang.org/x/crypto/bcrypt"

// SecretVerifier checks a PIN against its stored hash.
type SecretVerifier interface {
	Verify(hash []byte, secret string) bool
}

// Hasher hashes new PINs and verifies existing ones.
type Hasher interface {
	SecretVerifier
	Hash(secret string) ([]byte, error)
}

// BcryptHasher implements Hasher with bcrypt. A zero Cost means
// bcrypt.DefaultCost.
type BcryptHasher struct {
	Cost int
}

// Hash returns the bcrypt hash of secret.
func (h BcryptHasher) Hash(secret string) ([]byte, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(secret), cost)
}

// Verify reports whether secret matches hash.
func (BcryptHasher) Verify(hash []byte, secret string) bool {
	return bcrypt.CompareHashAndPassword(hash, []byte(secret)) == nil
}
