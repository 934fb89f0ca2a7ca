package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/observability"
)

const identityKey = "auth_identity"

// Guard enforces a Policy on the routes it wraps.
type Guard struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewGuard constructs a Guard.
func NewGuard(logger *zap.Logger, metrics *observability.Metrics) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{logger: logger, metrics: metrics}
}

// Require returns a handler that runs policy against the current request.
// Denials are reported as 401 whether or not a token was resolved.
func (g *Guard) Require(policy Policy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := Request{Path: c.Path(), Token: BearerToken(c.Get(fiber.HeaderAuthorization))}

		user, decision := policy.Authorize(c.UserContext(), req)
		g.metrics.RecordAuthDecision(policy.Name(), decision.String())
		if decision != Allow {
			g.logger.Debug("access denied", zap.String("policy", policy.Name()), zap.String("path", req.Path))
			return fiber.NewError(fiber.StatusUnauthorized, "Unauthorized")
		}

		c.Locals(identityKey, user)
		return c.Next()
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// IdentityFromContext retrieves the authenticated user set by Require.
func IdentityFromContext(c *fiber.Ctx) (*domain.User, bool) {
	user, ok := c.Locals(identityKey).(*domain.User)
	return user, ok && user != nil
}
