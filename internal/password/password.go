// Package password hashes and verifies user passwords. The service depends
// only on the Hasher interface, so the algorithm is chosen by config.
package password

import (
	"fmt"
)

// Hasher turns a password into a self-describing digest and checks a
// password against one. Implementations are safe for concurrent use.
type Hasher interface {
	Hash(password string) (string, error)
	// Verify reports whether password matches digest. A malformed digest
	// never matches.
	Verify(password, digest string) bool
}

// Algorithm names accepted by New.
const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

// New returns the hasher for algorithm. bcryptCost is ignored for argon2id.
func New(algorithm string, bcryptCost int) (Hasher, error) {
	switch algorithm {
	case AlgorithmBcrypt:
		return NewBcrypt(bcryptCost)
	case AlgorithmArgon2id:
		return NewArgon2id(DefaultArgon2Params())
	default:
		return nil, fmt.Errorf("unsupported password hasher %q", algorithm)
	}
}
