// Package seed bootstraps an empty helpdesk with its first administrator
// and, optionally, a small demo data set.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/auth"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
)

// Repositories are the stores the seeder writes to.
type Repositories struct {
	Users     repository.UserRepository
	Customers repository.CustomerRepository
	Tickets   repository.TicketRepository
	Responses repository.ResponseRepository
}

// Options controls what gets seeded.
type Options struct {
	AdminEmail    string
	AdminName     string
	AdminPassword string
	BcryptCost    int
	// Demo adds a supervisor, two agents, a customer and sample tickets.
	// Demo staff share DemoPassword.
	Demo         bool
	DemoPassword string
}

// Result reports what was created. Existing records are left untouched.
type Result struct {
	UsersCreated     int
	TicketsCreated   int
	ResponsesCreated int
}

// Run seeds the stores. It is safe to run repeatedly.
func Run(ctx context.Context, repos Repositories, opts Options, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res Result

	admin, created, err := ensureStaff(ctx, repos.Users, opts.AdminEmail, opts.AdminName, opts.AdminPassword, domain.RoleAdmin, opts.BcryptCost)
	if err != nil {
		return res, fmt.Errorf("seed admin: %w", err)
	}
	if created {
		res.UsersCreated++
		logger.Info("admin created", zap.String("user_id", admin.ID), zap.String("email", admin.Email))
	} else {
		logger.Info("admin already exists", zap.String("email", admin.Email))
	}

	if !opts.Demo {
		return res, nil
	}
	if err := seedDemo(ctx, repos, opts, &res, logger); err != nil {
		return res, fmt.Errorf("seed demo data: %w", err)
	}
	return res, nil
}

var demoStaff = []struct {
	email, name string
	role        domain.Role
}{
	{"supervisor@example.com", "Sam Supervisor", domain.RoleSupervisor},
	{"alice@example.com", "Alice Agent", domain.RoleAgent},
	{"bob@example.com", "Bob Agent", domain.RoleAgent},
}

const demoCustomerEmail = "dana@example.com"

func seedDemo(ctx context.Context, repos Repositories, opts Options, res *Result, logger *zap.Logger) error {
	staff := make(map[string]*domain.User, len(demoStaff))
	for _, s := range demoStaff {
		user, created, err := ensureStaff(ctx, repos.Users, s.email, s.name, opts.DemoPassword, s.role, opts.BcryptCost)
		if err != nil {
			return err
		}
		if created {
			res.UsersCreated++
		}
		staff[s.email] = user
	}

	if _, err := repos.Customers.GetByEmail(ctx, demoCustomerEmail); err == nil {
		logger.Info("demo tickets already seeded")
		return nil
	} else if !repository.IsNotFound(err) {
		return err
	}

	company := "Example Co"
	customer := &domain.Customer{Name: "Dana Customer", Email: demoCustomerEmail, Company: &company}
	if err := repos.Customers.Create(ctx, customer); err != nil {
		return err
	}

	alice := staff["alice@example.com"]
	now := time.Now().UTC()
	assignedAt := now.Add(-2 * time.Hour)
	closedAt := now.Add(-time.Hour)
	tickets := []*domain.Ticket{
		{
			Title:       "Cannot reset my password",
			Description: "The reset email never arrives.",
			Category:    domain.TicketCategoryTechnical,
			Priority:    domain.TicketPriorityHigh,
			Status:      domain.TicketStatusOpen,
		},
		{
			Title:        "Charged twice in March",
			Description:  "Two identical charges on my card statement.",
			Category:     domain.TicketCategoryBilling,
			Priority:     domain.TicketPriorityUrgent,
			Status:       domain.TicketStatusInProgress,
			AssignedToID: &alice.ID,
			AssignedAt:   &assignedAt,
		},
		{
			Title:        "Export to CSV",
			Description:  "Please add a CSV export to the reports page.",
			Category:     domain.TicketCategoryFeatureRequest,
			Priority:     domain.TicketPriorityLow,
			Status:       domain.TicketStatusResolved,
			AssignedToID: &alice.ID,
			AssignedAt:   &assignedAt,
			ClosedAt:     &closedAt,
		},
	}
	for _, t := range tickets {
		t.Source = domain.TicketSourceWebForm
		t.CustomerID = customer.ID
		if err := repos.Tickets.Create(ctx, t); err != nil {
			return err
		}
		res.TicketsCreated++
	}

	reply := &domain.Response{
		TicketID: tickets[1].ID,
		UserID:   alice.ID,
		Message:  "Thanks Dana, we are looking into the duplicate charge.",
	}
	if err := repos.Responses.CreateIfTicketOpen(ctx, reply); err != nil {
		return err
	}
	res.ResponsesCreated++
	return nil
}

func ensureStaff(ctx context.Context, users repository.UserRepository, email, name, password string, role domain.Role, cost int) (*domain.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, false, fmt.Errorf("email is required")
	}
	existing, err := users.GetByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !repository.IsNotFound(err) {
		return nil, false, err
	}

	hash, err := auth.HashPassword(password, cost)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", email, err)
	}
	if strings.TrimSpace(name) == "" {
		name = email
	}
	user := &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         role,
		Active:       true,
		PasswordHash: &hash,
	}
	if err := users.Create(ctx, user); err != nil {
		return nil, false, err
	}
	return user, true, nil
}
