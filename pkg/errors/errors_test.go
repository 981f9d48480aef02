package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrUnauthorized,
		ErrInternal, ErrConflict, ErrServiceUnavail,
		ErrInvalidCredentials, ErrInvalidToken, ErrTokenExpired,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	wrapped := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: fmt.Errorf("db connection lost")}
	assert.Equal(t, "INTERNAL_ERROR: something broke: db connection lost", wrapped.Error())

	bare := &AppError{Code: "NOT_FOUND", Message: "user not found"}
	assert.Equal(t, "NOT_FOUND: user not found", bare.Error())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		status   int
		sentinel error
	}{
		{"not found", NotFound("user", "u-1"), "NOT_FOUND", http.StatusNotFound, ErrNotFound},
		{"already exists", AlreadyExists("user", "email", "a@b.c"), "ALREADY_EXISTS", http.StatusConflict, ErrAlreadyExists},
		{"conflict", Conflict("refresh token already stored"), "CONFLICT", http.StatusConflict, ErrConflict},
		{"invalid input", InvalidInput("bad"), "INVALID_INPUT", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("no"), "UNAUTHORIZED", http.StatusUnauthorized, ErrUnauthorized},
		{"invalid credentials", InvalidCredentials(), "INVALID_CREDENTIALS", http.StatusUnauthorized, ErrInvalidCredentials},
		{"invalid token", InvalidToken(), "INVALID_TOKEN", http.StatusUnauthorized, ErrInvalidToken},
		{"token expired", TokenExpired(), "TOKEN_EXPIRED", http.StatusUnauthorized, ErrTokenExpired},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			require.NotNil(t, tc.err)
			assert.Equal(t, tc.code, tc.err.Code)
			assert.Equal(t, tc.status, tc.err.Status)
			assert.True(t, errors.Is(tc.err, tc.sentinel))
		})
	}
}

func TestAlreadyExists_Message(t *testing.T) {
	err := AlreadyExists("user", "email", "user@example.com")
	assert.Equal(t, `user with email "user@example.com" already exists`, err.Message)
}

func TestInvalidCredentials_IdenticalShape(t *testing.T) {
	a, b := InvalidCredentials(), InvalidCredentials()
	assert.Equal(t, a.Error(), b.Error())
	assert.Equal(t, a.Message, b.Message)
}

func TestInternal_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("pool closed")
	err := Internal(cause)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.True(t, errors.Is(err, cause))
}

func TestWrap(t *testing.T) {
	err := Wrap(ErrNotFound, "get user")
	assert.EqualError(t, err, "get user: resource not found")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", InvalidToken(), http.StatusUnauthorized},
		{"wrapped app error", fmt.Errorf("refresh: %w", TokenExpired()), http.StatusUnauthorized},
		{"not found sentinel", fmt.Errorf("x: %w", ErrNotFound), http.StatusNotFound},
		{"conflict sentinel", ErrConflict, http.StatusConflict},
		{"already exists sentinel", ErrAlreadyExists, http.StatusConflict},
		{"invalid input sentinel", ErrInvalidInput, http.StatusBadRequest},
		{"invalid token sentinel", ErrInvalidToken, http.StatusUnauthorized},
		{"unavailable", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HTTPStatus(tc.err))
		})
	}
}
