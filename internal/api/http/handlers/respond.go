package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/auth"
	"github.com/deskline/helpdesk-service/internal/domain"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

func respond(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(fiber.Map{"success": true, "data": data})
}

func respondList(c *fiber.Ctx, data any, count int) error {
	return c.JSON(fiber.Map{"success": true, "data": data, "count": count})
}

func respondMessage(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{"success": true, "message": message})
}

func currentPrincipal(c *fiber.Ctx) (*domain.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	return principal, nil
}

func parseBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}
