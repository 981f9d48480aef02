package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshToken_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, (&RefreshToken{ExpiresAt: now.Add(time.Second)}).Expired(now))
	assert.True(t, (&RefreshToken{ExpiresAt: now}).Expired(now))
	assert.True(t, (&RefreshToken{ExpiresAt: now.Add(-time.Hour)}).Expired(now))
}

func TestUser_PublicView(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	u := &User{ID: "u-1", Email: "user@example.com", IsActive: true, CreatedAt: created, UpdatedAt: created.Add(time.Hour)}

	assert.Equal(t, UserPublicView{ID: "u-1", Email: "user@example.com", IsActive: true, CreatedAt: created}, u.PublicView())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "user@example.com", NormalizeEmail("  User@Example.COM "))
}
