package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// ErrInvalidCredentials covers unknown users, wrong passwords and inactive accounts alike.
var ErrInvalidCredentials = apperrors.NewUnauthorized("Invalid credentials")

// AuthService coordinates login and superuser seeding.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	TokenManager *auth.TokenManager
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	tokens := deps.TokenManager
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.JWTSecret, auth.WithLifetimes(cfg.AccessTokenTTL(), cfg.RefreshTokenTTL()))
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.Nop{}
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   tokens,
		dispatcher: dispatcher,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
		now:        time.Now,
	}
}

// Login checks credentials and issues an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.TokenPair, *domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return domain.TokenPair{}, nil, apperrors.MapError(err)
		}
		auth.CompareDummy(password)
		return domain.TokenPair{}, nil, s.loginFailed(ctx, username)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil || !user.IsActive {
		return domain.TokenPair{}, nil, s.loginFailed(ctx, username)
	}

	pair, err := s.tokenMgr.Issue(user)
	if err != nil {
		return domain.TokenPair{}, nil, apperrors.NewInternalError(err)
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("failed to record last login", zap.String("id", user.ID), zap.Error(err))
	}
	s.logger.Info("user logged in", zap.String("username", user.Username), zap.String("id", user.ID))
	s.publish(ctx, events.Event{Type: events.EventUserLoggedIn, UserID: user.ID, ActorID: user.ID, Timestamp: now})
	return pair, user, nil
}

func (s *AuthService) loginFailed(ctx context.Context, username string) error {
	s.logger.Warn("failed login attempt", zap.String("username", username))
	s.publish(ctx, events.Event{
		Type:      events.EventLoginFailed,
		Timestamp: s.now(),
		Payload:   events.LoginFailedPayload{Username: username},
	})
	return ErrInvalidCredentials
}

// EnsureSuperuser creates the configured admin account or brings an existing one up to date.
func (s *AuthService) EnsureSuperuser(ctx context.Context, admin config.AdminConfig) error {
	if admin.Username == "" {
		return nil
	}

	existing, err := s.users.FindByUsername(ctx, admin.Username)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}

	if existing == nil {
		hash, err := auth.HashPassword(admin.Password, s.bcryptCost)
		if err != nil {
			return err
		}
		user := &domain.User{
			Username:     admin.Username,
			Email:        admin.Email,
			PasswordHash: hash,
			IsStaff:      true,
			IsSuperuser:  true,
			IsActive:     true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return err
		}
		s.logger.Info("superuser created", zap.String("username", user.Username), zap.String("id", user.ID))
		return nil
	}

	changed := false
	if !existing.IsSuperuser {
		existing.IsSuperuser = true
		changed = true
	}
	if !existing.IsStaff {
		existing.IsStaff = true
		changed = true
	}
	if !existing.IsActive {
		existing.IsActive = true
		changed = true
	}
	if admin.Email != "" && existing.Email != admin.Email {
		existing.Email = admin.Email
		changed = true
	}
	if admin.Password != "" && auth.ComparePassword(existing.PasswordHash, admin.Password) != nil {
		hash, err := auth.HashPassword(admin.Password, s.bcryptCost)
		if err != nil {
			return err
		}
		existing.PasswordHash = hash
		changed = true
	}
	if !changed {
		s.logger.Info("superuser already up to date", zap.String("username", existing.Username))
		return nil
	}
	if err := s.users.Save(ctx, existing); err != nil {
		return err
	}
	s.logger.Info("superuser updated", zap.String("username", existing.Username))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event", string(event.Type)), zap.Error(err))
	}
}
