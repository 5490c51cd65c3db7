package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/donor-auth/internal/domain"
	apperrors "github.com/spec-kit/donor-auth/pkg/errorutil"
)

// RequireAccountType ensures the authenticated caller holds one of the allowed account
// types. It must run after IdentityGate.Handle.
func RequireAccountType(allowed ...domain.AccountType) fiber.Handler {
	allowedSet := make(map[domain.AccountType]struct{}, len(allowed))
	for _, at := range allowed {
		allowedSet[at] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("no token, authorization denied")
		}
		if _, exists := allowedSet[identity.AccountType]; !exists {
			return apperrors.NewForbidden("insufficient account type")
		}
		return c.Next()
	}
}
