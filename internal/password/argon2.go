package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2ID          = "argon2id"
	minArgon2MemoryKB = 8 * 1024
	minArgon2Salt     = 16
	minArgon2Key      = 16
)

var errMalformedDigest = errors.New("malformed argon2id digest")

// Argon2Params are the argon2id cost parameters. Memory is in KiB.
type Argon2Params struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params returns the RFC 9106 second recommended option.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2id hashes passwords into PHC strings of the form
// $argon2id$v=19$m=65536,t=3,p=4$<salt>$<hash>.
type Argon2id struct {
	params Argon2Params
}

// NewArgon2id validates params and returns a hasher using them.
func NewArgon2id(params Argon2Params) (*Argon2id, error) {
	switch {
	case params.Memory < minArgon2MemoryKB:
		return nil, fmt.Errorf("argon2id memory must be >= %d KiB", minArgon2MemoryKB)
	case params.Time < 1:
		return nil, errors.New("argon2id time must be >= 1")
	case params.Parallelism < 1:
		return nil, errors.New("argon2id parallelism must be >= 1")
	case params.SaltLength < minArgon2Salt:
		return nil, fmt.Errorf("argon2id salt length must be >= %d", minArgon2Salt)
	case params.KeyLength < minArgon2Key:
		return nil, fmt.Errorf("argon2id key length must be >= %d", minArgon2Key)
	}
	return &Argon2id{params: params}, nil
}

// Hash derives a key from password with a fresh random salt.
func (a *Argon2id) Hash(password string) (string, error) {
	salt := make([]byte, a.params.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("argon2id salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.params.KeyLength)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID, argon2.Version,
		a.params.Memory, a.params.Time, a.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify recomputes the key with the parameters embedded in digest.
func (a *Argon2id) Verify(password, digest string) bool {
	p, salt, key, err := decodePHC(digest)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Parallelism, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1
}

func decodePHC(digest string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != argon2ID {
		return p, nil, nil, errMalformedDigest
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, nil, nil, errMalformedDigest
	}

	// Memory is capped so a hostile digest cannot force a huge allocation.
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil ||
		p.Memory < minArgon2MemoryKB || p.Memory > 1024*1024 || p.Time < 1 || p.Parallelism < 1 {
		return p, nil, nil, errMalformedDigest
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) < minArgon2Salt {
		return p, nil, nil, errMalformedDigest
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) < minArgon2Key {
		return p, nil, nil, errMalformedDigest
	}
	return p, salt, key, nil
}
