package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"

	"github.com/beck-00/financial-model-generator/internal/domain"
)

const testSecret = "test-secret-that-is-long-enough-32b"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCodec(t *testing.T, alg string) (*Codec, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	c, err := NewCodec(testSecret, alg, WithClock(clock.Now), WithIssuer("auth-service"))
	require.NoError(t, err)
	return c, clock
}

func TestNewCodec_Algorithms(t *testing.T) {
	for _, alg := range []string{"HS256", "HS384", "HS512"} {
		_, err := NewCodec(testSecret, alg)
		assert.NoError(t, err, alg)
	}
	for _, alg := range []string{"RS256", "none", "ES256", ""} {
		_, err := NewCodec(testSecret, alg)
		assert.Error(t, err, alg)
	}
	_, err := NewCodec("", "HS256")
	assert.Error(t, err)
}

func TestMintParse_RoundTrip(t *testing.T) {
	c, clock := newTestCodec(t, "HS256")

	token, minted, err := c.Mint("user-1", domain.TokenTypeRefresh, 7*24*time.Hour)
	require.NoError(t, err)

	claims, err := c.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, domain.TokenTypeRefresh, claims.Type)
	assert.Equal(t, "auth-service", claims.Issuer)
	assert.Equal(t, minted.ID, claims.ID)
	assert.Equal(t, clock.Now().Add(7*24*time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestMint_SameSecondTokensDiffer(t *testing.T) {
	c, _ := newTestCodec(t, "HS256")

	a, _, err := c.Mint("user-1", domain.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)
	b, _, err := c.Mint("user-1", domain.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.NotEqual(t, TokenKey(a), TokenKey(b))
}

func TestParse_DoesNotCheckExpiry(t *testing.T) {
	c, clock := newTestCodec(t, "HS256")
	token, _, err := c.Mint("user-1", domain.TokenTypeRefresh, time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Hour)

	_, err = c.Parse(token)
	assert.NoError(t, err)
}

func TestParse_RejectsAsInvalidToken(t *testing.T) {
	c, _ := newTestCodec(t, "HS256")
	good, _, err := c.Mint("user-1", domain.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	other, _ := newTestCodec(t, "HS512")
	otherAlg, _, err := other.Mint("user-1", domain.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	wrongKey, err := NewCodec("another-secret-of-sufficient-size!!", "HS256")
	require.NoError(t, err)
	forged, _, err := wrongKey.Mint("user-1", domain.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))
	noSubject := sign(&Claims{Type: domain.TokenTypeRefresh, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}},
		jwt.SigningMethodHS256, []byte(testSecret))
	badType := sign(&Claims{Type: "id", RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: exp}},
		jwt.SigningMethodHS256, []byte(testSecret))
	noExpiry := sign(&Claims{Type: domain.TokenTypeRefresh, RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}},
		jwt.SigningMethodHS256, []byte(testSecret))
	unsigned := sign(&Claims{Type: domain.TokenTypeRefresh, RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1", ExpiresAt: exp}},
		jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType)

	tests := map[string]string{
		"empty":            "",
		"garbage":          "not.a.jwt",
		"tampered payload": tampered,
		"wrong key":        forged,
		"wrong algorithm":  otherAlg,
		"alg none":         unsigned,
		"missing subject":  noSubject,
		"unknown type":     badType,
		"missing expiry":   noExpiry,
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			claims, err := c.Parse(token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
		})
	}
}

func TestValidateAccess(t *testing.T) {
	c, clock := newTestCodec(t, "HS384")

	access, _, err := c.Mint("user-1", domain.TokenTypeAccess, 30*time.Minute)
	require.NoError(t, err)
	refresh, _, err := c.Mint("user-1", domain.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	claims, err := c.ValidateAccess(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	_, err = c.ValidateAccess(refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)

	clock.Advance(30 * time.Minute)
	_, err = c.ValidateAccess(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenKey(t *testing.T) {
	key := TokenKey("abc")
	assert.Len(t, key, 64)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", key)
	assert.Equal(t, key, TokenKey("abc"))
}
