package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/beck-00/financial-model-generator/pkg/database"
	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"

	"github.com/beck-00/financial-model-generator/internal/domain"
)

const keyPrefix = "auth:refresh:"

// Rows are stored as "<user_id> <expires_at> <created_at>" with RFC 3339
// timestamps, so the owner can be read from Lua without a JSON decoder.
//
// KEYS[1] old key, KEYS[2] successor key.
// ARGV[1] owner, ARGV[2] successor value, ARGV[3] successor TTL in ms.
// Returns 1 on success, 0 if the old row is missing or owned by someone
// else, -1 if the successor key is already taken.
const replaceScript = `
local current = redis.call('GET', KEYS[1])
if not current then
  return 0
end
local owner = string.match(current, '^(%S+) ')
if owner ~= ARGV[1] then
  return 0
end
if redis.call('EXISTS', KEYS[2]) == 1 then
  return -1
end
redis.call('DEL', KEYS[1])
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`

var replaceLua = redis.NewScript(replaceScript)

// LedgerRepository implements repository.RefreshTokenLedger using Redis.
// Keys outlive the token by grace so an expired row is still found and
// reported as expired before Redis evicts it.
type LedgerRepository struct {
	client *redis.Client
	grace  time.Duration
	now    func() time.Time
}

// NewLedgerRepository creates a new Redis-backed refresh token ledger.
func NewLedgerRepository(client *redis.Client, grace time.Duration) *LedgerRepository {
	return &LedgerRepository{
		client: client,
		grace:  grace,
		now:    time.Now,
	}
}

// Insert stores a new row with SET NX.
func (r *LedgerRepository) Insert(ctx context.Context, t *domain.RefreshToken) (err error) {
	ctx, end := database.TraceRedis(ctx, "InsertRefreshToken", "SET NX")
	defer func() { end(err) }()

	ok, err := r.client.SetNX(ctx, keyPrefix+t.Key, encodeRow(t), r.ttl(t)).Result()
	if err != nil {
		return fmt.Errorf("redis set refresh token: %w", err)
	}
	if !ok {
		return apperrors.Conflict("refresh token already recorded")
	}
	return nil
}

// Find returns the row stored under key.
func (r *LedgerRepository) Find(ctx context.Context, key string) (_ *domain.RefreshToken, err error) {
	ctx, end := database.TraceRedis(ctx, "FindRefreshToken", "GET")
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	val, err := r.client.Get(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("redis get refresh token: %w", err)
	}
	return decodeRow(key, val)
}

// Replace runs the compare-and-swap script: the old row is removed and the
// successor stored only if the old row exists and belongs to successor.UserID.
func (r *LedgerRepository) Replace(ctx context.Context, oldKey string, successor *domain.RefreshToken) (err error) {
	ctx, end := database.TraceRedis(ctx, "ReplaceRefreshToken", "EVALSHA replace")
	defer func() {
		if errors.Is(err, apperrors.ErrNotFound) {
			end(nil)
			return
		}
		end(err)
	}()

	res, err := replaceLua.Run(ctx, r.client,
		[]string{keyPrefix + oldKey, keyPrefix + successor.Key},
		successor.UserID, encodeRow(successor), r.ttl(successor).Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis replace refresh token: %w", err)
	}

	switch res {
	case 1:
		return nil
	case -1:
		return apperrors.Conflict("refresh token already recorded")
	default:
		return apperrors.ErrNotFound
	}
}

// Delete removes key if present.
func (r *LedgerRepository) Delete(ctx context.Context, key string) (err error) {
	ctx, end := database.TraceRedis(ctx, "DeleteRefreshToken", "DEL")
	defer func() { end(err) }()

	if err = r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del refresh token: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: key TTLs evict rows once the grace period ends.
func (r *LedgerRepository) DeleteExpired(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (r *LedgerRepository) ttl(t *domain.RefreshToken) time.Duration {
	ttl := t.ExpiresAt.Sub(r.now()) + r.grace
	if ttl < time.Second {
		ttl = time.Second
	}
	return ttl
}

func encodeRow(t *domain.RefreshToken) string {
	return strings.Join([]string{
		t.UserID,
		t.ExpiresAt.UTC().Format(time.RFC3339Nano),
		t.CreatedAt.UTC().Format(time.RFC3339Nano),
	}, " ")
}

func decodeRow(key, val string) (*domain.RefreshToken, error) {
	parts := strings.Split(val, " ")
	if len(parts) != 3 {
		return nil, fmt.Errorf("decode refresh token row: unexpected field count %d", len(parts))
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, parts[1])
	if err != nil {
		return nil, fmt.Errorf("decode refresh token expiry: %w", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, parts[2])
	if err != nil {
		return nil, fmt.Errorf("decode refresh token creation time: %w", err)
	}
	return &domain.RefreshToken{
		Key:       key,
		UserID:    parts[0],
		ExpiresAt: expiresAt,
		CreatedAt: createdAt,
	}, nil
}
