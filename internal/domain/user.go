package domain

import (
	"strings"
	"time"
)

// User is a registered account. Password material lives in Credential.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Credential is the password record bound one-to-one to a user.
type Credential struct {
	UserID            string
	PasswordHash      string
	PasswordChangedAt time.Time
	CreatedAt         time.Time
}

// UserPublicView is the user representation returned to API clients.
type UserPublicView struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// PublicView strips the user down to the fields clients may see.
func (u *User) PublicView() UserPublicView {
	return UserPublicView{
		ID:        u.ID,
		Email:     u.Email,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// NormalizeEmail lowercases and trims an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
