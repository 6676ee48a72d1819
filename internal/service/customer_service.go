package service

import (
	"context"
	"strings"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/repository"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// CustomerService manages customer profiles for staff.
type CustomerService struct {
	customers repository.CustomerRepository
}

// NewCustomerService constructs the service.
func NewCustomerService(customers repository.CustomerRepository) *CustomerService {
	return &CustomerService{customers: customers}
}

// List returns customers whose name, email or company contains search.
func (s *CustomerService) List(ctx context.Context, actor *domain.Principal, search string) ([]domain.CustomerListItem, error) {
	if err := requirePermission(actor, policy.ViewCustomers, "not allowed to view customers"); err != nil {
		return nil, err
	}
	return s.customers.List(ctx, strings.TrimSpace(search))
}

// Create adds a customer profile. Emails are unique.
func (s *CustomerService) Create(ctx context.Context, actor *domain.Principal, input CustomerInput) (*domain.Customer, error) {
	if err := requirePermission(actor, policy.ViewCustomers, "not allowed to manage customers"); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email are required", nil)
	}
	customer := &domain.Customer{
		Name:    name,
		Email:   email,
		Phone:   trimmed(input.Phone),
		Company: trimmed(input.Company),
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, duplicateOr(err, "a customer with this email already exists", map[string]any{"email": email})
	}
	return customer, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
