// Package memory provides in-process repositories for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"

	"github.com/beck-00/financial-model-generator/internal/domain"
)

// Ledger is a mutex-guarded refresh token ledger. Rows do not survive a restart.
type Ledger struct {
	mu   sync.Mutex
	rows map[string]domain.RefreshToken
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{rows: make(map[string]domain.RefreshToken)}
}

// Insert stores t, or returns a Conflict if its key is already recorded.
func (l *Ledger) Insert(_ context.Context, t *domain.RefreshToken) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.rows[t.Key]; ok {
		return apperrors.Conflict("refresh token already recorded")
	}
	l.rows[t.Key] = *t
	return nil
}

// Find returns a copy of the row for key, or apperrors.ErrNotFound.
func (l *Ledger) Find(_ context.Context, key string) (*domain.RefreshToken, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.rows[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &row, nil
}

// Replace swaps oldKey for successor under the lock. It returns
// apperrors.ErrNotFound if oldKey is gone or owned by another user.
func (l *Ledger) Replace(_ context.Context, oldKey string, successor *domain.RefreshToken) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	row, ok := l.rows[oldKey]
	if !ok || row.UserID != successor.UserID {
		return apperrors.ErrNotFound
	}
	if _, taken := l.rows[successor.Key]; taken {
		return apperrors.Conflict("refresh token already recorded")
	}
	delete(l.rows, oldKey)
	l.rows[successor.Key] = *successor
	return nil
}

// Delete removes key if present.
func (l *Ledger) Delete(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.rows, key)
	return nil
}

// DeleteExpired removes rows that expired before the cutoff and returns how
// many were removed.
func (l *Ledger) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n int64
	for key, row := range l.rows {
		if row.ExpiresAt.Before(before) {
			delete(l.rows, key)
			n++
		}
	}
	return n, nil
}

// Len reports the number of stored rows.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}
