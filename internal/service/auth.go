package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	apperrors "github.com/beck-00/financial-model-generator/pkg/errors"

	"github.com/beck-00/financial-model-generator/internal/auth"
	"github.com/beck-00/financial-model-generator/internal/domain"
	"github.com/beck-00/financial-model-generator/internal/event"
	"github.com/beck-00/financial-model-generator/internal/password"
	"github.com/beck-00/financial-model-generator/internal/repository"
)

// MinPasswordLength is the minimum password length in characters.
const MinPasswordLength = 8

// MaxPasswordBytes is bcrypt's input limit. It is enforced for every hasher.
const MaxPasswordBytes = 72

// dummyPassword is hashed once at startup. Logins for unknown emails verify
// against its digest so they cost the same as a wrong password.
const dummyPassword = "not-a-real-password"

// TokenConfig holds token lifetimes and the ledger retention window.
type TokenConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Retention is how long expired ledger rows are kept before purging.
	Retention time.Duration
}

// Option configures an AuthService.
type Option func(*AuthService)

// WithClock overrides the time source. It should match the codec's clock.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// AuthService implements registration, login and refresh-token rotation.
// It holds no locks; per-token mutual exclusion comes from the ledger.
type AuthService struct {
	users     repository.UserRepository
	ledger    repository.RefreshTokenLedger
	codec     *auth.Codec
	hasher    password.Hasher
	events    event.Publisher
	cfg       TokenConfig
	logger    *slog.Logger
	now       func() time.Time
	dummyHash string
}

// NewAuthService creates a new auth service.
func NewAuthService(
	users repository.UserRepository,
	ledger repository.RefreshTokenLedger,
	codec *auth.Codec,
	hasher password.Hasher,
	events event.Publisher,
	cfg TokenConfig,
	logger *slog.Logger,
	opts ...Option,
) (*AuthService, error) {
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	s := &AuthService{
		users:     users,
		ledger:    ledger,
		codec:     codec,
		hasher:    hasher,
		events:    events,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		dummyHash: dummyHash,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	Email    string
	Password string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// Register creates a user and its credential record.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (_ *domain.User, err error) {
	defer func() { recordOutcome("register", err) }()

	email := domain.NormalizeEmail(input.Email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if utf8.RuneCountInString(input.Password) < MinPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	}
	if len(input.Password) > MaxPasswordBytes {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at most %d bytes", MaxPasswordBytes))
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	cred := &domain.Credential{
		UserID:            user.ID,
		PasswordHash:      digest,
		PasswordChangedAt: now,
		CreatedAt:         now,
	}

	if err := s.users.CreateWithCredential(ctx, user, cred); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.events.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return user, nil
}

// Login verifies the password and issues a new token pair. An unknown email,
// an inactive account and a wrong password all yield the same error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (_ *domain.TokenPair, err error) {
	defer func() { recordOutcome("login", err) }()

	user, cred, err := s.users.GetCredentialByEmail(ctx, domain.NormalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.hasher.Verify(input.Password, s.dummyHash)
			return nil, apperrors.InvalidCredentials()
		}
		return nil, fmt.Errorf("get credential: %w", err)
	}

	if !s.hasher.Verify(input.Password, cred.PasswordHash) || !user.IsActive {
		return nil, apperrors.InvalidCredentials()
	}

	pair, _, err := s.issuePair(ctx, user.ID, "")
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishUserLoggedIn(ctx, user.ID, s.now().UTC()); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.logged_in event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return pair, nil
}

// Refresh exchanges a live refresh token for a new pair. The presented token
// is consumed: it never validates again, whether or not this call wins.
func (s *AuthService) Refresh(ctx context.Context, token string) (_ *domain.TokenPair, err error) {
	defer func() { recordOutcome("refresh", err) }()

	claims, err := s.codec.Parse(token)
	if err != nil || claims.Type != domain.TokenTypeRefresh {
		return nil, apperrors.InvalidToken()
	}

	key := auth.TokenKey(token)
	row, err := s.ledger.Find(ctx, key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "refresh token reuse rejected", slog.String("user_id", claims.Subject))
			return nil, apperrors.InvalidToken()
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}

	// The ledger expiry is authoritative; the signed exp is not consulted.
	if row.Expired(s.now()) {
		if err := s.ledger.Delete(ctx, key); err != nil {
			return nil, fmt.Errorf("delete expired refresh token: %w", err)
		}
		s.logger.InfoContext(ctx, "refresh token expired", slog.String("user_id", row.UserID))
		return nil, apperrors.TokenExpired()
	}

	if row.UserID != claims.Subject {
		s.logger.WarnContext(ctx, "refresh token owner mismatch", slog.String("user_id", row.UserID))
		return nil, apperrors.InvalidToken()
	}

	pair, successor, err := s.issuePair(ctx, row.UserID, key)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishTokenRotated(ctx, key, successor); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish token.rotated event",
			slog.String("user_id", row.UserID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "tokens refreshed", slog.String("user_id", row.UserID))
	return pair, nil
}

// Logout revokes a refresh token. Revoking a token that is already gone succeeds.
func (s *AuthService) Logout(ctx context.Context, token string) (err error) {
	defer func() { recordOutcome("logout", err) }()

	claims, err := s.codec.Parse(token)
	if err != nil || claims.Type != domain.TokenTypeRefresh {
		return apperrors.InvalidToken()
	}

	if err := s.ledger.Delete(ctx, auth.TokenKey(token)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "refresh token revoked", slog.String("user_id", claims.Subject))
	return nil
}

// CurrentUser returns the profile of the authenticated user.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("user no longer exists")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// PurgeExpiredTokens removes ledger rows that expired more than the
// retention window ago.
func (s *AuthService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	cutoff := s.now().UTC().Add(-s.cfg.Retention)
	n, err := s.ledger.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expired refresh tokens: %w", err)
	}
	refreshTokensPurgedTotal.Add(float64(n))
	return n, nil
}

// issuePair mints an access and a refresh token for userID and records the
// refresh token. With a non-empty previousKey the record replaces that row
// atomically; losing that race yields InvalidToken.
func (s *AuthService) issuePair(ctx context.Context, userID, previousKey string) (*domain.TokenPair, *domain.RefreshToken, error) {
	access, _, err := s.codec.Mint(userID, domain.TokenTypeAccess, s.cfg.AccessTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, claims, err := s.codec.Mint(userID, domain.TokenTypeRefresh, s.cfg.RefreshTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("mint refresh token: %w", err)
	}

	row := &domain.RefreshToken{
		Key:       auth.TokenKey(refresh),
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
		CreatedAt: claims.IssuedAt.Time,
	}

	if previousKey == "" {
		if err := s.ledger.Insert(ctx, row); err != nil {
			return nil, nil, fmt.Errorf("record refresh token: %w", err)
		}
	} else if err := s.ledger.Replace(ctx, previousKey, row); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.WarnContext(ctx, "refresh token reuse rejected", slog.String("user_id", userID))
			return nil, nil, apperrors.InvalidToken()
		}
		return nil, nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    domain.BearerTokenType,
	}, row, nil
}
