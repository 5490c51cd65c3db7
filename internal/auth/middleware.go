package auth

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/donor-auth/internal/domain"
	apperrors "github.com/spec-kit/donor-auth/pkg/errorutil"
)

const identityKey = "auth_identity"

// TokenDenylist records tokens revoked before their natural expiry.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// IdentityGate authenticates requests to protected routes. It trusts token claims and
// never loads the principal record.
type IdentityGate struct {
	tokens   *TokenManager
	carrier  *SessionCarrier
	denylist TokenDenylist
	logger   *zap.Logger
}

// NewIdentityGate constructs the gate. denylist may be nil for purely stateless sessions.
func NewIdentityGate(tokens *TokenManager, carrier *SessionCarrier, denylist TokenDenylist, logger *zap.Logger) *IdentityGate {
	return &IdentityGate{tokens: tokens, carrier: carrier, denylist: denylist, logger: logger}
}

// Handle enforces authentication for protected routes.
func (g *IdentityGate) Handle(c *fiber.Ctx) error {
	raw := g.carrier.Extract(c)
	if raw == "" {
		return apperrors.NewUnauthenticated("no token, authorization denied")
	}

	identity, err := g.tokens.Verify(raw)
	if err != nil {
		return apperrors.NewUnauthenticated("token is not valid")
	}

	if g.denylist != nil && identity.TokenID != "" {
		revoked, err := g.denylist.IsRevoked(c.UserContext(), identity.TokenID)
		if err != nil {
			g.logger.Error("token denylist lookup failed", zap.Error(err))
			return apperrors.NewInternalError(err)
		}
		if revoked {
			return apperrors.NewUnauthenticated("token is not valid")
		}
	}

	c.Locals(identityKey, identity)
	return c.Next()
}

// IdentityFromContext retrieves the authenticated identity.
func IdentityFromContext(c *fiber.Ctx) (*domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return nil, false
	}
	identity, ok := val.(*domain.Identity)
	return identity, ok
}
