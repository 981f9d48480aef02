package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type credentials struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

func TestValidate_Success(t *testing.T) {
	assert.NoError(t, Validate(credentials{Email: "user@example.com", Password: "secret123"}))
}

func TestValidate_FieldErrorsUseJSONNames(t *testing.T) {
	tests := []struct {
		name  string
		in    credentials
		field string
		msg   string
	}{
		{"missing email", credentials{Password: "secret123"}, "email", "is required"},
		{"bad email", credentials{Email: "nope", Password: "secret123"}, "email", "must be a valid email address"},
		{"short password", credentials{Email: "user@example.com", Password: "short"}, "password", "must be at least 8 characters"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.in)
			var valErr *ValidationError
			require.ErrorAs(t, err, &valErr)
			assert.Equal(t, tc.msg, valErr.Fields()[tc.field])
			assert.Contains(t, valErr.Error(), "field '"+tc.field+"'")
		})
	}
}

func TestValidate_MaxTag(t *testing.T) {
	err := Validate(credentials{Email: "user@example.com", Password: strings.Repeat("p", 129)})
	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	assert.Equal(t, "must be at most 128 characters", valErr.Fields()["password"])
}

func TestDecodeAndValidate(t *testing.T) {
	t.Run("valid body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"user@example.com","password":"secret123"}`))
		var dst credentials
		require.NoError(t, DecodeAndValidate(req, &dst))
		assert.Equal(t, "user@example.com", dst.Email)
	})

	t.Run("empty body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
		var dst credentials
		assert.ErrorIs(t, DecodeAndValidate(req, &dst), ErrEmptyBody)
	})

	t.Run("malformed json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":`))
		var dst credentials
		err := DecodeAndValidate(req, &dst)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode request body")
	})

	t.Run("invalid fields", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"x","password":"p"}`))
		var dst credentials
		var valErr *ValidationError
		require.ErrorAs(t, DecodeAndValidate(req, &dst), &valErr)
		assert.Len(t, valErr.Fields(), 2)
	})
}
