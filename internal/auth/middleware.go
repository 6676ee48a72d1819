package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/observability"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// IdentityResolver loads the current principal for a verified email.
type IdentityResolver interface {
	Resolve(ctx context.Context, email string) (*domain.Principal, error)
}

// AuthMiddleware validates bearer tokens and re-resolves the caller on
// every request.
type AuthMiddleware struct {
	tokens   *TokenManager
	resolver IdentityResolver
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, resolver IdentityResolver) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, resolver: resolver}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return apperrors.NewUnauthenticated("invalid token")
	}

	principal, err := m.resolver.Resolve(c.UserContext(), claims.Email)
	if err != nil {
		return err
	}

	c.Locals(principalKey, principal)
	c.Locals(observability.LocalUserID, principal.UserID())
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	principal, ok := c.Locals(principalKey).(*domain.Principal)
	return principal, ok && principal != nil
}
