package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util"
)

// FailureCounter tracks failed login attempts per username. Counters expire
// on their own after the lockout window.
type FailureCounter interface {
	RecordFailure(ctx context.Context, username string, window time.Duration) (int64, error)
	Failures(ctx context.Context, username string) (int64, error)
	Reset(ctx context.Context, username string) error
}

// AuthService authenticates users and issues access tokens.
type AuthService struct {
	users         repository.UserRepository
	tokens        *auth.TokenManager
	throttle      FailureCounter
	logger        *zap.Logger
	bcryptCost    int
	lockThreshold int64
	lockWindow    time.Duration
}

// NewAuthService builds the service. A nil throttle disables lockout.
func NewAuthService(cfg config.AuthConfig, users repository.UserRepository, throttle FailureCounter, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:         users,
		tokens:        auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.AccessTokenTTLMinute)*time.Minute),
		throttle:      throttle,
		logger:        logger,
		bcryptCost:    cfg.BcryptCost,
		lockThreshold: int64(cfg.LoginLockThreshold),
		lockWindow:    time.Duration(cfg.LoginLockWindowMin) * time.Minute,
	}
}

// Login verifies credentials and issues a token. Repeated failures for the
// same username lock the account for the configured window.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.User, string, time.Time, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, "", time.Time{}, util.NewValidationError("username and password are required", nil)
	}

	if locked, err := s.isLocked(ctx, username); err != nil {
		s.logger.Warn("login throttle unavailable", zap.Error(err))
	} else if locked {
		return nil, "", time.Time{}, util.NewForbidden("too many failed login attempts, try again later")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		s.recordFailure(ctx, username)
		return nil, "", time.Time{}, util.NewUnauthorized("invalid credentials")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		s.recordFailure(ctx, username)
		return nil, "", time.Time{}, util.NewUnauthorized("invalid credentials")
	}

	if s.throttle != nil {
		if err := s.throttle.Reset(ctx, username); err != nil {
			s.logger.Warn("login throttle reset failed", zap.Error(err))
		}
	}

	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, expiresAt, nil
}

// UpdateProfile lets an authenticated user change their display name or
// password.
func (s *AuthService) UpdateProfile(ctx context.Context, actor *domain.User, fullName, password *string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if fullName != nil {
		trimmed := strings.TrimSpace(*fullName)
		if trimmed == "" {
			return nil, util.NewValidationError("full_name must not be empty", nil)
		}
		user.FullName = trimmed
	}
	if password != nil {
		if len(*password) < 6 {
			return nil, util.NewValidationError("password must be at least 6 characters", nil)
		}
		hash, err := auth.HashPassword(*password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

func (s *AuthService) isLocked(ctx context.Context, username string) (bool, error) {
	if s.throttle == nil || s.lockThreshold <= 0 {
		return false, nil
	}
	failures, err := s.throttle.Failures(ctx, username)
	if err != nil {
		return false, err
	}
	return failures >= s.lockThreshold, nil
}

func (s *AuthService) recordFailure(ctx context.Context, username string) {
	if s.throttle == nil {
		return
	}
	if _, err := s.throttle.RecordFailure(ctx, username, s.lockWindow); err != nil {
		s.logger.Warn("login throttle update failed", zap.Error(err))
	}
}
