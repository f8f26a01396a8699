package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/account-service/internal/auth"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/cache"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/dto"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/models"
	"github.com/ahmetcoskunkizilkaya/account-service/internal/repository"
	"github.com/google/uuid"
)

const tokenTypeBearer = "Bearer"

type SessionConfig struct {
	RefreshTTL   time.Duration
	StoreTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// SessionService owns the refresh token chain: login starts one, refresh
// extends it by exactly one link, logout ends every chain of a user.
type SessionService struct {
	users    UserStore
	tokens   RefreshTokenStore
	hasher   *auth.PasswordHasher
	codec    *auth.TokenCodec
	profiles profiles
	notifier Notifier
	cfg      SessionConfig
}

func NewSessionService(
	users UserStore,
	tokens RefreshTokenStore,
	hasher *auth.PasswordHasher,
	codec *auth.TokenCodec,
	profileCache cache.ProfileCache,
	notifier Notifier,
	cfg SessionConfig,
) *SessionService {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &SessionService{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		codec:    codec,
		profiles: newProfiles(profileCache),
		notifier: notifier,
		cfg:      cfg,
	}
}

func (s *SessionService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if err := s.checkAvailable(ctx, req.Username, req.Email); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:        uuid.New(),
		Username:  req.Username,
		Email:     req.Email,
		Password:  hash,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.RoleUser,
		IsActive:  true,
	}

	sctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	err = s.users.Create(sctx, user)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent registration.
			if cerr := s.checkAvailable(ctx, req.Username, req.Email); cerr != nil {
				return nil, cerr
			}
			return nil, ErrDuplicateUsername
		}
		return nil, storeError("create user", err)
	}

	slog.Info("user registered", "username", user.Username, "user_id", user.ID)

	s.profiles.put(ctx, user)
	if err := s.notifier.SendWelcome(ctx, user.Email, user.FirstName, user.LastName); err != nil {
		slog.Error("failed to send welcome email", "username", user.Username, "error", err)
	}

	resp := dto.NewUserResponse(user)
	return &resp, nil
}

func (s *SessionService) checkAvailable(ctx context.Context, username, email string) error {
	sctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	taken, err := s.users.ExistsByUsername(sctx, username)
	if err != nil {
		return storeError("check username", err)
	}
	if taken {
		return ErrDuplicateUsername
	}

	taken, err = s.users.ExistsByEmail(sctx, email)
	if err != nil {
		return storeError("check email", err)
	}
	if taken {
		return ErrDuplicateEmail
	}
	return nil
}

// Login reports a missing user, an inactive user and a wrong password with
// the same error.
func (s *SessionService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	user, err := s.users.FindActiveByUsername(sctx, req.Username)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.VerifyDummy(ctx, req.Password)
			slog.Warn("login failed", "username", req.Username, "reason", "unknown or inactive user")
			return nil, ErrInvalidCredentials
		}
		return nil, storeError("find user", err)
	}

	ok, err := s.hasher.Verify(ctx, req.Password, user.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		slog.Warn("login failed", "username", req.Username, "reason", "bad password")
		return nil, ErrInvalidCredentials
	}

	pair, record, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	sctx, cancel = withTimeout(ctx, s.cfg.StoreTimeout)
	err = s.tokens.Save(sctx, record)
	cancel()
	if err != nil {
		return nil, storeError("save refresh token", err)
	}

	slog.Info("user logged in", "username", user.Username)
	s.profiles.put(ctx, user)

	return &dto.LoginResponse{
		TokenResponse: *pair,
		User:          dto.NewUserResponse(user),
	}, nil
}

// Refresh consumes refreshToken and returns the next pair. An expired token
// is rejected without being modified; the sweeper removes it.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	if refreshToken == "" {
		return nil, ErrInvalidRefreshToken
	}

	sctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	current, err := s.tokens.FindUsable(sctx, auth.HashRefreshToken(refreshToken))
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, storeError("find refresh token", err)
	}

	if current.Expired(s.cfg.Now()) {
		return nil, ErrRefreshTokenExpired
	}

	sctx, cancel = withTimeout(ctx, s.cfg.StoreTimeout)
	user, err := s.users.FindActiveByUsername(sctx, current.Username)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.burn(ctx, current)
			return nil, ErrInvalidRefreshToken
		}
		return nil, storeError("find user", err)
	}

	pair, next, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	sctx, cancel = withTimeout(ctx, s.cfg.StoreTimeout)
	err = s.tokens.Rotate(sctx, current.ID, next)
	cancel()
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyUsed) {
			slog.Warn("refresh token replayed", "username", current.Username, "token_id", current.ID)
			return nil, ErrInvalidRefreshToken
		}
		return nil, storeError("rotate refresh token", err)
	}

	return pair, nil
}

// burn retires a token whose owner can no longer use it.
func (s *SessionService) burn(ctx context.Context, token *models.RefreshToken) {
	sctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	if _, err := s.tokens.MarkUsed(sctx, token.ID); err != nil {
		slog.Warn("failed to retire refresh token", "token_id", token.ID, "error", err)
	}
}

// Logout invalidates every outstanding refresh token of username. It
// succeeds when there is nothing to invalidate.
func (s *SessionService) Logout(ctx context.Context, username string) error {
	sctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	n, err := s.tokens.InvalidateAllForUser(sctx, username)
	if err != nil {
		return storeError("invalidate refresh tokens", err)
	}
	slog.Info("user logged out", "username", username, "invalidated", n)
	return nil
}

func (s *SessionService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	sctx, cancel := withTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()

	n, err := s.tokens.PurgeExpired(sctx, s.cfg.Now())
	if err != nil {
		return 0, storeError("purge expired refresh tokens", err)
	}
	if n > 0 {
		slog.Info("expired refresh tokens purged", "count", n)
	}
	return n, nil
}

func (s *SessionService) issuePair(user *models.User) (*dto.TokenResponse, *models.RefreshToken, error) {
	access, err := s.codec.IssueAccessToken(user.Username, user.Role, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.codec.IssueRefreshToken()
	if err != nil {
		return nil, nil, fmt.Errorf("issue refresh token: %w", err)
	}

	now := s.cfg.Now()
	record := &models.RefreshToken{
		ID:        uuid.New(),
		TokenHash: auth.HashRefreshToken(refresh),
		Username:  user.Username,
		ExpiresAt: now.Add(s.cfg.RefreshTTL),
		CreatedAt: now,
	}

	return &dto.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(s.codec.AccessTTL().Seconds()),
	}, record, nil
}
