package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/auth"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/repository"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// UserService administers accounts.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
	logger     *zap.Logger
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, bcryptCost int, logger *zap.Logger) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost, logger: loggerOrNop(logger)}
}

// UserCreateInput describes a new staff account.
type UserCreateInput struct {
	Email    string
	Name     string
	Password string
	Role     domain.Role
}

// UserPatch lists the account fields to change.
type UserPatch struct {
	Name     *string
	Email    *string
	Role     *domain.Role
	Active   *bool
	Password *string
}

// UserDetail is an account with its ticket statistics.
type UserDetail struct {
	User  domain.User
	Stats domain.UserStats
}

// List returns accounts matching filter ordered by name.
func (s *UserService) List(ctx context.Context, actor *domain.Principal, filter repository.UserFilter) ([]domain.UserListItem, error) {
	if err := requirePermission(actor, policy.ViewUsers, "not allowed to view users"); err != nil {
		return nil, err
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *filter.Role})
	}
	return s.users.List(ctx, filter)
}

// Get returns an account with its workload statistics.
func (s *UserService) Get(ctx context.Context, actor *domain.Principal, id string) (*UserDetail, error) {
	ctx, span := tracer.Start(ctx, "UserService.Get")
	defer span.End()

	if err := requirePermission(actor, policy.ViewUsers, "not allowed to view users"); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", id)
	}
	stats, err := s.users.Stats(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserDetail{User: *user, Stats: *stats}, nil
}

// Create adds a staff account with a password.
func (s *UserService) Create(ctx context.Context, actor *domain.Principal, input UserCreateInput) (*domain.User, error) {
	if err := requirePermission(actor, policy.ManageUsers, "not allowed to manage users"); err != nil {
		return nil, err
	}
	email := normalizeEmail(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || name == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("email, name and password are required", nil)
	}
	role := input.Role
	if role == "" {
		role = domain.RoleAgent
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	if !role.IsStaff() {
		return nil, apperrors.NewValidationError("customer accounts sign in with a magic link and cannot be created with a password", nil)
	}

	hash, err := s.hash(input.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Email:        email,
		Name:         name,
		Role:         role,
		Active:       true,
		PasswordHash: &hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, duplicateOr(err, "email already registered", map[string]any{"email": email})
	}
	s.logger.Info("user created",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("actor_id", actor.UserID()))
	return user, nil
}

// Update changes account fields. Customers never hold a password and staff
// always do.
func (s *UserService) Update(ctx context.Context, actor *domain.Principal, id string, patch UserPatch) (*domain.User, error) {
	if err := requirePermission(actor, policy.ManageUsers, "not allowed to manage users"); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "user", id)
	}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		user.Name = name
	}
	if patch.Email != nil {
		email := normalizeEmail(*patch.Email)
		if email == "" {
			return nil, apperrors.NewValidationError("email cannot be empty", nil)
		}
		user.Email = email
	}
	if patch.Active != nil {
		user.Active = *patch.Active
	}
	if patch.Role != nil {
		if !patch.Role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *patch.Role})
		}
		user.Role = *patch.Role
	}

	if user.Role == domain.RoleCustomer {
		if patch.Password != nil {
			return nil, apperrors.NewValidationError("customer accounts cannot have a password", nil)
		}
		user.PasswordHash = nil
	} else {
		if patch.Password != nil {
			hash, err := s.hash(*patch.Password)
			if err != nil {
				return nil, err
			}
			user.PasswordHash = &hash
		}
		if !user.HasPassword() {
			return nil, apperrors.NewValidationError("staff accounts require a password", nil)
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		if repository.IsNotFound(err) {
			return nil, notFoundOr(err, "user", id)
		}
		if errors.Is(err, repository.ErrUserHasAssignments) {
			return nil, apperrors.NewConflict("user still has assigned tickets; reassign them first", map[string]any{"userId": user.ID})
		}
		return nil, duplicateOr(err, "email already registered", map[string]any{"email": user.Email})
	}
	s.logger.Info("user updated", zap.String("user_id", user.ID), zap.String("actor_id", actor.UserID()))
	return user, nil
}

func (s *UserService) hash(password string) (string, error) {
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		if errors.Is(err, auth.ErrWeakPassword) {
			return "", apperrors.NewValidationError("password must be at least 8 characters", nil)
		}
		return "", apperrors.NewInternalError(err)
	}
	return hash, nil
}
