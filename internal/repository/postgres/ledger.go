package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/beck-00/financial-model-generator/pkg/database"
	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"

	"github.com/beck-00/financial-model-generator/internal/domain"
)

// LedgerRepository implements repository.RefreshTokenLedger using PostgreSQL.
type LedgerRepository struct {
	db database.DBTX
}

// NewLedgerRepository creates a new PostgreSQL-backed refresh token ledger.
func NewLedgerRepository(db database.DBTX) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const (
	insertTokenSQL = `
		INSERT INTO refresh_tokens (token_key, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, $4)`

	selectTokenSQL = `
		SELECT token_key, user_id, expires_at, created_at
		FROM refresh_tokens
		WHERE token_key = $1`

	consumeTokenSQL = `
		DELETE FROM refresh_tokens
		WHERE token_key = $1 AND user_id = $2
		RETURNING token_key`

	deleteTokenSQL = `DELETE FROM refresh_tokens WHERE token_key = $1`

	deleteExpiredSQL = `DELETE FROM refresh_tokens WHERE expires_at < $1`
)

// Insert stores a new refresh token row.
func (r *LedgerRepository) Insert(ctx context.Context, t *domain.RefreshToken) (err error) {
	ctx, end := database.TraceQuery(ctx, "InsertRefreshToken", insertTokenSQL)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, insertTokenSQL, t.Key, t.UserID, t.ExpiresAt, t.CreatedAt); err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Conflict("refresh token already recorded")
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

// Find returns the row stored under key.
func (r *LedgerRepository) Find(ctx context.Context, key string) (_ *domain.RefreshToken, err error) {
	ctx, end := database.TraceQuery(ctx, "FindRefreshToken", selectTokenSQL)
	defer func() { endSpan(end, err) }()

	var t domain.RefreshToken
	err = r.db.QueryRow(ctx, selectTokenSQL, key).Scan(&t.Key, &t.UserID, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &t, nil
}

// Replace consumes oldKey and records successor in one transaction. The
// DELETE takes the row lock, so a concurrent Replace of the same key waits
// and then finds nothing to delete.
func (r *LedgerRepository) Replace(ctx context.Context, oldKey string, successor *domain.RefreshToken) (err error) {
	ctx, end := database.TraceQuery(ctx, "ReplaceRefreshToken", consumeTokenSQL)
	defer func() { endSpan(end, err) }()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace refresh token tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var consumed string
	err = tx.QueryRow(ctx, consumeTokenSQL, oldKey, successor.UserID).Scan(&consumed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("consume refresh token: %w", err)
	}

	if _, err = tx.Exec(ctx, insertTokenSQL,
		successor.Key, successor.UserID, successor.ExpiresAt, successor.CreatedAt,
	); err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.Conflict("refresh token already recorded")
		}
		return fmt.Errorf("insert successor refresh token: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace refresh token: %w", err)
	}
	return nil
}

// Delete removes key if present.
func (r *LedgerRepository) Delete(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteRefreshToken", deleteTokenSQL)
	defer func() { end(err) }()

	if _, err = r.db.Exec(ctx, deleteTokenSQL, key); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// DeleteExpired removes rows whose expiry is before the cutoff.
func (r *LedgerRepository) DeleteExpired(ctx context.Context, before time.Time) (_ int64, err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteExpiredRefreshTokens", deleteExpiredSQL)
	defer func() { end(err) }()

	tag, err := r.db.Exec(ctx, deleteExpiredSQL, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
