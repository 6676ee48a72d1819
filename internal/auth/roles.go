package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/policy"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// RequirePermission ensures the caller's role holds every listed capability.
func RequirePermission(required ...policy.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		for _, capability := range required {
			if !policy.HasPermission(principal.Role(), capability) {
				return apperrors.NewForbidden("insufficient permissions")
			}
		}
		return c.Next()
	}
}
