package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/auth"
	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/repository"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// Session is an issued access token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// AuthService issues sessions: passwords for staff, magic links for
// customers.
type AuthService struct {
	users        repository.UserRepository
	customers    repository.CustomerRepository
	links        auth.MagicLinkStore
	tokenMgr     *auth.TokenManager
	dispatcher   events.Dispatcher
	logger       *zap.Logger
	now          Clock
	publicURL    string
	magicLinkTTL time.Duration
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	CustomerRepo repository.CustomerRepository
	MagicLinks   auth.MagicLinkStore
	Tokens       *auth.TokenManager
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Clock        Clock
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	tokens := deps.Tokens
	if tokens == nil {
		tokens = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)
	}
	return &AuthService{
		users:        deps.UserRepo,
		customers:    deps.CustomerRepo,
		links:        deps.MagicLinks,
		tokenMgr:     tokens,
		dispatcher:   deps.Dispatcher,
		logger:       loggerOrNop(deps.Logger),
		now:          clockOrNow(deps.Clock),
		publicURL:    strings.TrimRight(cfg.App.PublicURL, "/"),
		magicLinkTTL: cfg.Auth.MagicLinkTTL(),
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Login authenticates staff with a password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, *Session, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, apperrors.NewValidationError("email and password are required", nil)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, nil, err
	}
	if user.Role == domain.RoleCustomer {
		return nil, nil, apperrors.NewForbidden("customers sign in with a magic link")
	}
	if !user.HasPassword() || !auth.PasswordMatches(*user.PasswordHash, password) {
		return nil, nil, apperrors.NewUnauthenticated("invalid credentials")
	}
	if !user.Active {
		return nil, nil, apperrors.NewAccountInactive()
	}
	session, err := s.issue(user.Email)
	if err != nil {
		return nil, nil, err
	}
	s.logger.Info("staff login", zap.String("user_id", user.ID))
	return user, session, nil
}

// RequestMagicLink stores a one-time token for email and queues the sign-in
// email. Unknown emails get a link too; staff emails are silently skipped.
func (s *AuthService) RequestMagicLink(ctx context.Context, email string) error {
	ctx, span := tracer.Start(ctx, "AuthService.RequestMagicLink")
	defer span.End()

	email = normalizeEmail(email)
	if !validEmail(email) {
		return apperrors.NewValidationError("a valid email is required", nil)
	}
	if user, err := s.users.GetByEmail(ctx, email); err == nil && user.Role.IsStaff() {
		s.logger.Info("magic link requested for staff account; ignored", zap.String("user_id", user.ID))
		return nil
	} else if err != nil && !repository.IsNotFound(err) {
		return err
	}

	token, err := s.links.Issue(ctx, email, s.magicLinkTTL)
	if err != nil {
		return apperrors.NewDependencyFailure("magic link store", err)
	}
	publish(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type: events.EventMagicLinkRequested,
		Payload: events.MagicLinkRequestedPayload{
			Email: email,
			Link:  fmt.Sprintf("%s/auth/verify?token=%s", s.publicURL, url.QueryEscape(token)),
			TTL:   s.magicLinkTTL,
		},
	})
	return nil
}

// VerifyMagicLink consumes token and signs the customer in, creating the
// account on first use.
func (s *AuthService) VerifyMagicLink(ctx context.Context, token string) (*domain.User, *Session, error) {
	ctx, span := tracer.Start(ctx, "AuthService.VerifyMagicLink")
	defer span.End()

	email, err := s.links.Consume(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, auth.ErrMagicLinkInvalid) {
			return nil, nil, apperrors.NewUnauthenticated("magic link invalid or expired")
		}
		return nil, nil, apperrors.NewDependencyFailure("magic link store", err)
	}

	user, err := s.customerAccount(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if _, err := s.customers.LinkUser(ctx, user.ID, user.Email, user.Name); err != nil {
		return nil, nil, err
	}
	session, err := s.issue(user.Email)
	if err != nil {
		return nil, nil, err
	}
	return user, session, nil
}

func (s *AuthService) customerAccount(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
	case repository.IsNotFound(err):
		user = &domain.User{
			Email:  email,
			Name:   NameFromEmail(email),
			Role:   domain.RoleCustomer,
			Active: true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			if !errors.Is(err, repository.ErrDuplicate) {
				return nil, err
			}
			// Lost a race with a concurrent first sign-in.
			if user, err = s.users.GetByEmail(ctx, email); err != nil {
				return nil, err
			}
		} else {
			s.logger.Info("customer account created", zap.String("user_id", user.ID))
		}
	default:
		return nil, err
	}

	if user.Role != domain.RoleCustomer {
		return nil, apperrors.NewForbidden("staff accounts sign in with a password")
	}
	if !user.Active {
		return nil, apperrors.NewAccountInactive()
	}
	if strings.TrimSpace(user.Name) == "" {
		user.Name = NameFromEmail(user.Email)
		if err := s.users.Update(ctx, user); err != nil {
			return nil, err
		}
	}
	return user, nil
}

func (s *AuthService) issue(email string) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(email)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &Session{Token: token, ExpiresAt: exp}, nil
}

// NameFromEmail derives a display name from the local part of email:
// "john.doe@x" becomes "John doe".
func NameFromEmail(email string) string {
	local, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if local == "" {
		return "Customer"
	}
	runes := []rune(local)
	rest := strings.NewReplacer(".", " ", "_", " ", "-", " ").Replace(string(runes[1:]))
	return strings.ToUpper(string(runes[0])) + rest
}

func validEmail(email string) bool {
	local, domainPart, ok := strings.Cut(email, "@")
	return ok && local != "" && strings.Contains(domainPart, ".") && !strings.ContainsAny(email, " \t\r\n")
}
