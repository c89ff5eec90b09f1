// Package password hashes and verifies user passwords.
package password

import "golang.org/x/crypto/bcrypt"

// Hasher turns a plaintext password into a storable hash and checks
// candidates against it.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// Bcrypt is the default Hasher. A zero Cost means bcrypt.DefaultCost.
type Bcrypt struct {
	Cost int
}

func NewBcrypt(cost int) Bcrypt {
	return Bcrypt{Cost: cost}
}

func (b Bcrypt) Hash(plain string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Verify reports whether plain matches hash. Malformed hashes never match.
func (Bcrypt) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
