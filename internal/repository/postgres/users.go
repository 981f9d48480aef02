package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/beck-00/financial-model-generator/pkg/database"
	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"

	"github.com/beck-00/financial-model-generator/internal/domain"
)

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

const (
	insertUserSQL = `
		INSERT INTO users (id, email, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	insertCredentialSQL = `
		INSERT INTO auth_credentials (user_id, password_hash, password_changed_at, created_at)
		VALUES ($1, $2, $3, $4)`

	selectUserByIDSQL = `
		SELECT id, email, is_active, created_at, updated_at
		FROM users
		WHERE id = $1`

	selectCredentialByEmailSQL = `
		SELECT u.id, u.email, u.is_active, u.created_at, u.updated_at,
		       c.password_hash, c.password_changed_at, c.created_at
		FROM users u
		JOIN auth_credentials c ON c.user_id = u.id
		WHERE u.email = $1`
)

// CreateWithCredential inserts the user and its credential in one transaction.
func (r *UserRepository) CreateWithCredential(ctx context.Context, u *domain.User, cred *domain.Credential) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateUser", insertUserSQL)
	defer func() { end(err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create user tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err = tx.Exec(ctx, insertUserSQL, u.ID, u.Email, u.IsActive, u.CreatedAt, u.UpdatedAt); err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	if _, err = tx.Exec(ctx, insertCredentialSQL,
		cred.UserID, cred.PasswordHash, cred.PasswordChangedAt, cred.CreatedAt,
	); err != nil {
		return fmt.Errorf("insert credential: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists("user", "email", u.Email)
		}
		return fmt.Errorf("commit create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id string) (_ *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, "GetUserByID", selectUserByIDSQL)
	defer func() { endSpan(end, err) }()

	var u domain.User
	err = r.db.QueryRow(ctx, selectUserByIDSQL, id).Scan(
		&u.ID, &u.Email, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("user", id)
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &u, nil
}

// GetCredentialByEmail returns the user bound to email with its credential.
func (r *UserRepository) GetCredentialByEmail(ctx context.Context, email string) (_ *domain.User, _ *domain.Credential, err error) {
	ctx, end := database.TraceQuery(ctx, "GetCredentialByEmail", selectCredentialByEmailSQL)
	defer func() { endSpan(end, err) }()

	var (
		u    domain.User
		cred domain.Credential
	)
	err = r.db.QueryRow(ctx, selectCredentialByEmailSQL, email).Scan(
		&u.ID, &u.Email, &u.IsActive, &u.CreatedAt, &u.UpdatedAt,
		&cred.PasswordHash, &cred.PasswordChangedAt, &cred.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, apperrors.NotFound("user", email)
		}
		return nil, nil, fmt.Errorf("get credential by email: %w", err)
	}
	cred.UserID = u.ID
	return &u, &cred, nil
}
