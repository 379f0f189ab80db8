package auth

import "golang.org/x/crypto/bcrypt"

// MinPasswordLength is the shortest secret accepted at registration or password change.
const MinPasswordLength = 8

// BcryptHasher hashes secrets with bcrypt.
type BcryptHasher struct {
	Cost int
}

// Hash returns the bcrypt digest of secret.
func (h BcryptHasher) Hash(secret string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether secret matches digest. Malformed digests never match.
func (h BcryptHasher) Verify(secret, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(secret)) == nil
}
