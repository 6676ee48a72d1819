package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/auth"
	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/report"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/internal/repository/memory"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

var fixedNow = time.Date(2024, time.March, 14, 9, 30, 0, 0, time.UTC)

type harness struct {
	t          *testing.T
	store      *memory.Store
	dispatcher events.Dispatcher
	identity   *IdentityService
	tickets    *TicketService
	responses  *ResponseService
	users      *UserService
	customers  *CustomerService
	reports    *ReportService
	auth       *AuthService
	links      *auth.MemoryMagicLinks

	mu     sync.Mutex
	events []events.Event

	admin, supervisor, agent, agent2, customerUser *domain.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := func() time.Time { return fixedNow }
	store := memory.NewStore(memory.WithClock(clock))
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())

	h := &harness{t: t, store: store, dispatcher: dispatcher}
	for _, et := range []events.EventType{
		events.EventTicketCreated, events.EventTicketUpdated, events.EventTicketDeleted,
		events.EventResponseCreated, events.EventMagicLinkRequested,
	} {
		dispatcher.Subscribe(et, h.record)
	}

	h.wire(store.Tickets())

	h.admin = h.staff("admin@example.com", "Ada Admin", domain.RoleAdmin)
	h.supervisor = h.staff("sup@example.com", "Sam Supervisor", domain.RoleSupervisor)
	h.agent = h.staff("agent1@example.com", "Alice Agent", domain.RoleAgent)
	h.agent2 = h.staff("agent2@example.com", "Bob Agent", domain.RoleAgent)
	h.customerUser = h.createUser(&domain.User{
		Email: "x@y.com", Name: "Xavier", Role: domain.RoleCustomer, Active: true,
	})
	return h
}

// wire builds the services around tickets so tests can interpose on the
// ticket repository.
func (h *harness) wire(tickets repository.TicketRepository) {
	clock := Clock(func() time.Time { return fixedNow })
	cfg := config.Config{
		App:  config.AppConfig{PublicURL: "https://help.example.com"},
		Auth: config.AuthConfig{JWTSecret: "test-secret", AccessTokenTTLMinutes: 60, MagicLinkTTLMinutes: 15},
	}
	h.identity = NewIdentityService(h.store.Users(), h.store.Customers(), nil)
	h.tickets = NewTicketService(TicketDependencies{
		TicketRepo:   tickets,
		CustomerRepo: h.store.Customers(),
		UserRepo:     h.store.Users(),
		ResponseRepo: h.store.Responses(),
		Dispatcher:   h.dispatcher,
		Clock:        clock,
	})
	h.responses = NewResponseService(ResponseDependencies{
		Tickets:      h.tickets,
		TicketRepo:   tickets,
		ResponseRepo: h.store.Responses(),
		Dispatcher:   h.dispatcher,
		Clock:        clock,
	})
	h.users = NewUserService(h.store.Users(), 4, nil)
	h.customers = NewCustomerService(h.store.Customers())
	h.reports = NewReportService(h.store.Reports(), report.NewPDFRenderer(), nil, clock)
	h.links = auth.NewMemoryMagicLinks(clock)
	h.auth = NewAuthService(cfg, AuthDependencies{
		UserRepo:     h.store.Users(),
		CustomerRepo: h.store.Customers(),
		MagicLinks:   h.links,
		Dispatcher:   h.dispatcher,
		Clock:        clock,
	})
}

func (h *harness) record(_ context.Context, e events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, e)
	return nil
}

func (h *harness) eventsOf(et events.EventType) []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []events.Event
	for _, e := range h.events {
		if e.Type == et {
			out = append(out, e)
		}
	}
	return out
}

func (h *harness) createUser(u *domain.User) *domain.User {
	h.t.Helper()
	if err := h.store.Users().Create(context.Background(), u); err != nil {
		h.t.Fatalf("create user %s: %v", u.Email, err)
	}
	return u
}

func (h *harness) staff(email, name string, role domain.Role) *domain.User {
	h.t.Helper()
	hash, err := auth.HashPassword("password123", 4)
	if err != nil {
		h.t.Fatalf("hash: %v", err)
	}
	return h.createUser(&domain.User{Email: email, Name: name, Role: role, Active: true, PasswordHash: &hash})
}

func (h *harness) principal(u *domain.User) *domain.Principal {
	h.t.Helper()
	p, err := h.identity.Resolve(context.Background(), u.Email)
	if err != nil {
		h.t.Fatalf("resolve %s: %v", u.Email, err)
	}
	return p
}

func (h *harness) customerProfile(email, name string) *domain.Customer {
	h.t.Helper()
	c, err := h.store.Customers().FindOrCreate(context.Background(), &domain.Customer{Name: name, Email: email})
	if err != nil {
		h.t.Fatalf("customer %s: %v", email, err)
	}
	return c
}

// ticket inserts an OPEN ticket for customer directly into the store.
func (h *harness) ticket(customer *domain.Customer, mutate func(*domain.Ticket)) *domain.Ticket {
	h.t.Helper()
	t := &domain.Ticket{
		Title:       "Cannot log in",
		Description: "Password reset link does nothing",
		Category:    domain.TicketCategoryTechnical,
		Priority:    domain.TicketPriorityHigh,
		Status:      domain.TicketStatusOpen,
		Source:      domain.TicketSourceWebForm,
		CustomerID:  customer.ID,
	}
	if mutate != nil {
		mutate(t)
	}
	if err := h.store.Tickets().Create(context.Background(), t); err != nil {
		h.t.Fatalf("create ticket: %v", err)
	}
	return t
}

func (h *harness) reload(id string) *domain.Ticket {
	h.t.Helper()
	t, err := h.store.Tickets().GetByID(context.Background(), id)
	if err != nil {
		h.t.Fatalf("reload ticket %s: %v", id, err)
	}
	return t
}

func assign(userID string) policy.TicketPatch {
	return policy.TicketPatch{Assignee: policy.AssigneeChange{Set: true, UserID: &userID}}
}

func status(s domain.TicketStatus) *domain.TicketStatus { return &s }

func strPtr(s string) *string { return &s }

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

// barrierTickets holds every GetByID until n readers have arrived so
// concurrent updates plan against the same snapshot.
type barrierTickets struct {
	repository.TicketRepository
	arrived sync.WaitGroup
}

func newBarrierTickets(inner repository.TicketRepository, n int) *barrierTickets {
	b := &barrierTickets{TicketRepository: inner}
	b.arrived.Add(n)
	return b
}

func (b *barrierTickets) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	t, err := b.TicketRepository.GetByID(ctx, id)
	b.arrived.Done()
	b.arrived.Wait()
	return t, err
}
