package auth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/domain"
)

// IdentityFinder resolves a token subject to a user record.
type IdentityFinder interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// Authenticator turns a bearer token into an identity.
type Authenticator struct {
	tokens *TokenManager
	users  IdentityFinder
	logger *zap.Logger
}

// NewAuthenticator constructs an Authenticator.
func NewAuthenticator(tokens *TokenManager, users IdentityFinder, logger *zap.Logger) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{tokens: tokens, users: users, logger: logger}
}

// Authenticate returns the user behind an access token, or nil.
// Every failure collapses to nil; callers cannot tell expired, forged and malformed tokens apart.
func (a *Authenticator) Authenticate(ctx context.Context, token string) *domain.User {
	if token == "" {
		return nil
	}

	claims, err := a.tokens.Decode(token)
	if err != nil {
		a.logger.Debug("token rejected", zap.Error(err))
		return nil
	}
	if claims.Kind != domain.TokenKindAccess {
		a.logger.Debug("non-access token presented", zap.String("type", string(claims.Kind)))
		return nil
	}

	user, err := a.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			a.logger.Warn("identity lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
		}
		return nil
	}
	return user
}
