package repository

import (
	"context"
	"time"

	"github.com/beck-00/financial-model-generator/internal/domain"
)

// UserRepository is the credential store.
type UserRepository interface {
	// CreateWithCredential inserts the user and its credential atomically.
	// A taken email yields apperrors.ErrAlreadyExists.
	CreateWithCredential(ctx context.Context, user *domain.User, cred *domain.Credential) error

	// GetByID returns apperrors.ErrNotFound if no user has the ID.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetCredentialByEmail returns the user and credential bound to email,
	// or apperrors.ErrNotFound.
	GetCredentialByEmail(ctx context.Context, email string) (*domain.User, *domain.Credential, error)
}

// RefreshTokenLedger records outstanding refresh tokens by key.
type RefreshTokenLedger interface {
	// Insert stores a new row; an existing key yields apperrors.ErrConflict.
	Insert(ctx context.Context, token *domain.RefreshToken) error

	// Find returns the row for key or apperrors.ErrNotFound.
	Find(ctx context.Context, key string) (*domain.RefreshToken, error)

	// Replace deletes oldKey and inserts successor as one atomic step. It
	// returns apperrors.ErrNotFound unless oldKey exists and belongs to
	// successor.UserID, so concurrent replaces of one key have one winner.
	Replace(ctx context.Context, oldKey string, successor *domain.RefreshToken) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteExpired removes rows that expired before the cutoff and reports
	// how many were removed.
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}
