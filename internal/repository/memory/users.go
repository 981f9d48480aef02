package memory

import (
	"context"
	"sync"

	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"

	"github.com/beck-00/financial-model-generator/internal/domain"
)

type userRecord struct {
	user domain.User
	cred domain.Credential
}

// UserRepository is an in-memory credential store with a unique email index.
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*userRecord
	byEmail map[string]*userRecord
}

// NewUserRepository returns an empty store.
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*userRecord),
		byEmail: make(map[string]*userRecord),
	}
}

// CreateWithCredential stores the user and credential together. A taken email
// or ID yields apperrors.ErrAlreadyExists and stores nothing.
func (r *UserRepository) CreateWithCredential(_ context.Context, u *domain.User, cred *domain.Credential) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[u.Email]; ok {
		return apperrors.AlreadyExists("user", "email", u.Email)
	}
	if _, ok := r.byID[u.ID]; ok {
		return apperrors.AlreadyExists("user", "id", u.ID)
	}

	rec := &userRecord{user: *u, cred: *cred}
	r.byID[u.ID] = rec
	r.byEmail[u.Email] = rec
	return nil
}

// GetByID returns a copy of the user, or a NotFound error.
func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	u := rec.user
	return &u, nil
}

// GetCredentialByEmail returns copies of the user and credential bound to
// email, or a NotFound error.
func (r *UserRepository) GetCredentialByEmail(_ context.Context, email string) (*domain.User, *domain.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byEmail[email]
	if !ok {
		return nil, nil, apperrors.NotFound("user", email)
	}
	u, cred := rec.user, rec.cred
	return &u, &cred, nil
}

// SetActive flips a user's active flag. Used to model account suspension.
func (r *UserRepository) SetActive(id string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return apperrors.NotFound("user", id)
	}
	rec.user.IsActive = active
	return nil
}
