package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"

	"github.com/beck-00/financial-model-generator/internal/domain"
)

// ErrInvalidToken is returned for every parse failure: bad signature,
// malformed structure, wrong algorithm or missing claims.
var ErrInvalidToken = apperrors.ErrInvalidToken

// Claims are the claims carried by both access and refresh tokens.
type Claims struct {
	Type domain.TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Option configures a Codec.
type Option func(*Codec)

// WithClock overrides the time source used for iat/exp and access expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// WithIssuer sets the iss claim on minted tokens.
func WithIssuer(issuer string) Option {
	return func(c *Codec) { c.issuer = issuer }
}

// Codec mints and parses HMAC-signed JWTs. It is immutable after
// construction and safe for concurrent use.
type Codec struct {
	method *jwt.SigningMethodHMAC
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewCodec returns a codec for algorithm, which must be HS256, HS384 or HS512.
func NewCodec(secret, algorithm string, opts ...Option) (*Codec, error) {
	method, ok := jwt.GetSigningMethod(algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}
	if secret == "" {
		return nil, fmt.Errorf("signing secret must not be empty")
	}

	c := &Codec{
		method: method,
		secret: []byte(secret),
		now:    time.Now,
		// Expiry is checked by the caller: against the clock for access
		// tokens and against the ledger for refresh tokens.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Mint signs a token of the given type for subject, expiring ttl from now.
// Each token carries a random jti so two tokens minted in the same second differ.
func (c *Codec) Mint(subject string, typ domain.TokenType, ttl time.Duration) (string, *Claims, error) {
	now := c.now().UTC()
	claims := &Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, claims, nil
}

// Parse verifies the signature and shape of token. It does not check expiry.
func (c *Codec) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}
	switch claims.Type {
	case domain.TokenTypeAccess, domain.TokenTypeRefresh:
	default:
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ValidateAccess parses token and requires an unexpired access token.
func (c *Codec) ValidateAccess(token string) (*Claims, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Type != domain.TokenTypeAccess {
		return nil, ErrInvalidToken
	}
	if !c.now().Before(claims.ExpiresAt.Time) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TokenKey returns the ledger key for a signed token: its SHA-256 hex digest.
func TokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
