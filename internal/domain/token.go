package domain

import "time"

// TokenType tags a signed token as access or refresh.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// BearerTokenType is the OAuth2 token_type returned with every pair.
const BearerTokenType = "bearer"

// RefreshToken is a ledger row for an outstanding refresh token. Key is the
// SHA-256 hex digest of the signed token; the token itself is never stored.
type RefreshToken struct {
	Key       string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the row's expiry is at or before now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenPair is the response to a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}
