package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"
	"github.com/beck-00/financial-model-generator/pkg/httputil"
)

type contextKeyType string

const claimsKey contextKeyType = "auth_claims"

// Claims is the identity the auth middleware places in the request context.
type Claims struct {
	UserID  string
	TokenID string
}

// TokenValidator validates a bearer access token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// Auth rejects requests without a valid "Authorization: Bearer <token>"
// header and stores the validated claims in the request context.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeAuthError(w, r, "missing or malformed authorization header")
				return
			}

			claims, err := validate(token)
			if err != nil {
				writeAuthError(w, r, "invalid or expired access token")
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// ClaimsFromContext returns the claims stored by Auth, if any.
func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*Claims)
	return c, ok && c != nil
}

// UserIDFromContext returns the authenticated user ID, or "".
func UserIDFromContext(ctx context.Context) string {
	if c, ok := ClaimsFromContext(ctx); ok {
		return c.UserID
	}
	return ""
}

func writeAuthError(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
	httputil.WriteError(w, r, apperrors.Unauthorized(message), nil)
}
