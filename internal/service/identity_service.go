package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// IdentityService turns a verified email into the caller's current record.
// Nothing downstream trusts a role that was not re-read here.
type IdentityService struct {
	users     repository.UserRepository
	customers repository.CustomerRepository
	logger    *zap.Logger
}

// NewIdentityService constructs the resolver.
func NewIdentityService(users repository.UserRepository, customers repository.CustomerRepository, logger *zap.Logger) *IdentityService {
	return &IdentityService{users: users, customers: customers, logger: loggerOrNop(logger)}
}

// Resolve loads the user for email. CUSTOMER users are linked to their
// customer profile on first access, adopting an existing profile with the
// same email before creating one.
func (s *IdentityService) Resolve(ctx context.Context, email string) (*domain.Principal, error) {
	ctx, span := tracer.Start(ctx, "IdentityService.Resolve")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" {
		return nil, apperrors.NewUnauthenticated("no authenticated identity")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperrors.NewUnauthenticated("unknown identity")
		}
		return nil, err
	}
	if !user.Active {
		return nil, apperrors.NewAccountInactive()
	}
	span.SetAttributes(attribute.String("user.role", string(user.Role)))

	principal := &domain.Principal{User: user}
	if user.Role != domain.RoleCustomer {
		return principal, nil
	}

	customer, err := s.customers.GetByUserID(ctx, user.ID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}
	if customer == nil {
		customer, err = s.customers.LinkUser(ctx, user.ID, user.Email, displayName(user))
		if err != nil {
			return nil, err
		}
		s.logger.Debug("customer profile linked",
			zap.String("user_id", user.ID),
			zap.String("customer_id", customer.ID))
	}
	principal.Customer = customer
	return principal, nil
}
