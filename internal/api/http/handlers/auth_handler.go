package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/api/dto"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/service"
)

// AuthHandler exposes sign-in endpoints and the current-caller lookup.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, session, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, sessionResponse(user, session))
}

// RequestMagicLink handles POST /auth/magic-link. The answer does not reveal
// whether the email belongs to an account.
func (h *AuthHandler) RequestMagicLink(c *fiber.Ctx) error {
	var req dto.MagicLinkRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.auth.RequestMagicLink(c.UserContext(), req.Email); err != nil {
		return err
	}
	return respondMessage(c, http.StatusAccepted, "if the address can sign in, a link is on its way")
}

// VerifyMagicLink handles POST /auth/magic-link/verify.
func (h *AuthHandler) VerifyMagicLink(c *fiber.Ctx) error {
	var req dto.MagicLinkVerifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, session, err := h.auth.VerifyMagicLink(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, sessionResponse(user, session))
}

// Me handles GET /api/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, dto.MeResponse{
		User:         userSummary(principal.User),
		Customer:     customerResponse(principal.Customer),
		Capabilities: policy.Capabilities(principal.Role()),
	})
}

func sessionResponse(user *domain.User, session *service.Session) dto.SessionResponse {
	return dto.SessionResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      userSummary(user),
	}
}
