package service

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/repository"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	customers  repository.CustomerRepository
	users      repository.UserRepository
	responses  repository.ResponseRepository
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        Clock
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	CustomerRepo repository.CustomerRepository
	UserRepo     repository.UserRepository
	ResponseRepo repository.ResponseRepository
	Dispatcher   events.Dispatcher
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	Clock        Clock
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		customers:  deps.CustomerRepo,
		users:      deps.UserRepo,
		responses:  deps.ResponseRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// CustomerInput identifies the customer a staff member files a ticket for.
type CustomerInput struct {
	Name    string
	Email   string
	Phone   *string
	Company *string
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title        string
	Description  string
	Category     domain.TicketCategory
	Priority     domain.TicketPriority
	Source       domain.TicketSource
	Customer     *CustomerInput
	AssignedToID *string
}

// TicketListFilter narrows listings within the caller's visibility.
type TicketListFilter = repository.TicketFilter

// List returns the tickets the caller may see that match filter. The
// caller's scope always overrides filter.Scope.
func (s *TicketService) List(ctx context.Context, actor *domain.Principal, filter TicketListFilter) ([]domain.TicketListItem, error) {
	ctx, span := tracer.Start(ctx, "TicketService.List")
	defer span.End()

	scope, ok := policy.ScopeFor(actor)
	if !ok {
		return nil, apperrors.NewForbidden("not allowed to list tickets")
	}
	span.SetAttributes(attribute.String("ticket.scope", scope.Kind.String()))
	filter.Scope = scope
	return s.tickets.List(ctx, filter)
}

// Get returns a ticket with its customer, assignee and the responses the
// caller may read.
func (s *TicketService) Get(ctx context.Context, actor *domain.Principal, ticketID string) (*domain.TicketDetail, error) {
	ctx, span := tracer.Start(ctx, "TicketService.Get")
	defer span.End()

	ticket, err := s.loadAccessible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, actor, ticket)
}

func (s *TicketService) detail(ctx context.Context, actor *domain.Principal, ticket *domain.Ticket) (*domain.TicketDetail, error) {
	detail := &domain.TicketDetail{Ticket: *ticket}

	customer, err := s.customers.GetByID(ctx, ticket.CustomerID)
	if err != nil && !repository.IsNotFound(err) {
		return nil, err
	}
	detail.Customer = customer

	if ticket.AssignedToID != nil {
		assignee, err := s.users.GetByID(ctx, *ticket.AssignedToID)
		if err != nil && !repository.IsNotFound(err) {
			return nil, err
		}
		detail.AssignedTo = assignee
	}

	responses, err := s.responses.ListByTicket(ctx, ticket.ID, policy.CanSeeInternal(actor.Role()))
	if err != nil {
		return nil, err
	}
	detail.Responses = policy.VisibleResponses(actor.Role(), responses)
	return detail, nil
}

// loadAccessible reads the ticket fresh and applies the access guard. A
// missing ticket is reported as missing only to callers who see everything.
func (s *TicketService) loadAccessible(ctx context.Context, actor *domain.Principal, ticketID string) (*domain.Ticket, error) {
	if actor == nil || actor.User == nil {
		return nil, apperrors.NewUnauthenticated("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if repository.IsNotFound(err) {
			if policy.RevealsMissing(actor) {
				return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
			}
			return nil, apperrors.NewForbidden("no access to this ticket")
		}
		return nil, err
	}
	if !policy.CanAccess(actor, ticket) {
		return nil, apperrors.NewForbidden("no access to this ticket")
	}
	return ticket, nil
}

// Create files a new ticket. Customers file for their own profile; staff
// must name the customer.
func (s *TicketService) Create(ctx context.Context, actor *domain.Principal, input TicketCreateInput) (*domain.TicketDetail, error) {
	ctx, span := tracer.Start(ctx, "TicketService.Create")
	defer span.End()

	if err := requirePermission(actor, policy.CreateTicket, "not allowed to create tickets"); err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    input.Category,
		Priority:    input.Priority,
		Source:      input.Source,
		Status:      domain.TicketStatusOpen,
	}
	if ticket.Title == "" || ticket.Description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}
	if ticket.Category == "" {
		ticket.Category = domain.TicketCategoryGeneral
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Source == "" {
		ticket.Source = domain.TicketSourceWebForm
	}
	if !ticket.Category.Valid() {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"category": ticket.Category})
	}
	if !ticket.Priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": ticket.Priority})
	}
	if !ticket.Source.Valid() {
		return nil, apperrors.NewValidationError("invalid source", map[string]any{"source": ticket.Source})
	}

	customer, err := s.customerForNewTicket(ctx, actor, input.Customer)
	if err != nil {
		return nil, err
	}
	ticket.CustomerID = customer.ID

	if input.AssignedToID != nil && *input.AssignedToID != "" && policy.HasPermission(actor.Role(), policy.AssignTicket) {
		if err := s.checkAssignee(ctx, *input.AssignedToID); err != nil {
			return nil, err
		}
		assignee := *input.AssignedToID
		stamp := s.now().UTC()
		ticket.AssignedToID = &assignee
		ticket.AssignedAt = &stamp
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.logger.Info("ticket created",
		zap.String("ticket_id", ticket.ID),
		zap.String("customer_id", ticket.CustomerID),
		zap.String("actor_id", actor.UserID()))

	publish(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketCreatedPayload{
			CustomerID:   ticket.CustomerID,
			Priority:     ticket.Priority,
			Category:     ticket.Category,
			Title:        ticket.Title,
			AssignedToID: ticket.AssignedToID,
		},
	})

	detail := &domain.TicketDetail{Ticket: *ticket, Customer: customer, Responses: []domain.ResponseView{}}
	if ticket.AssignedToID != nil {
		if assignee, err := s.users.GetByID(ctx, *ticket.AssignedToID); err == nil {
			detail.AssignedTo = assignee
		}
	}
	return detail, nil
}

func (s *TicketService) customerForNewTicket(ctx context.Context, actor *domain.Principal, input *CustomerInput) (*domain.Customer, error) {
	if actor.Role() == domain.RoleCustomer {
		if actor.Customer != nil {
			return actor.Customer, nil
		}
		return s.customers.LinkUser(ctx, actor.User.ID, actor.User.Email, displayName(actor.User))
	}

	if input == nil || normalizeEmail(input.Email) == "" {
		return nil, apperrors.NewValidationError("customer email is required", nil)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = NameFromEmail(input.Email)
	}
	return s.customers.FindOrCreate(ctx, &domain.Customer{
		Name:    name,
		Email:   normalizeEmail(input.Email),
		Phone:   input.Phone,
		Company: input.Company,
	})
}

// checkAssignee verifies userID names an active staff account.
func (s *TicketService) checkAssignee(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return apperrors.NewValidationError("assignee does not exist", map[string]any{"assignedToId": userID})
		}
		return err
	}
	if !user.Role.IsStaff() {
		return apperrors.NewValidationError("tickets can only be assigned to staff", map[string]any{"assignedToId": userID})
	}
	if !user.Active {
		return apperrors.NewValidationError("assignee is inactive", map[string]any{"assignedToId": userID})
	}
	return nil
}

// Update applies patch to the ticket. The write is conditional on the
// status and assignee the plan was computed from; a concurrent change
// surfaces as a conflict and is not retried.
func (s *TicketService) Update(ctx context.Context, actor *domain.Principal, ticketID string, patch policy.TicketPatch) (*domain.TicketDetail, error) {
	ctx, span := tracer.Start(ctx, "TicketService.Update")
	defer span.End()

	if err := requirePermission(actor, policy.UpdateTicket, "not allowed to update tickets"); err != nil {
		return nil, err
	}
	current, err := s.loadAccessible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}

	plan, err := policy.PlanUpdate(actor, *current, patch, s.now().UTC())
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			s.metrics.RecordClaim("conflict")
		}
		return nil, err
	}
	if plan.AssigneeChanged && plan.Ticket.AssignedToID != nil && !plan.Claim {
		if err := s.checkAssignee(ctx, *plan.Ticket.AssignedToID); err != nil {
			return nil, err
		}
	}

	updated, err := s.tickets.UpdateIfUnchanged(ctx, plan)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrStaleTicket):
			if plan.Claim {
				s.metrics.RecordClaim("conflict")
			}
			return nil, apperrors.NewConflict("ticket was changed by another request; reload and retry", map[string]any{"ticketId": ticketID})
		case repository.IsNotFound(err):
			return nil, notFoundOr(err, "ticket", ticketID)
		}
		return nil, err
	}
	if plan.Claim {
		s.metrics.RecordClaim("won")
	}
	span.SetAttributes(attribute.Bool("ticket.claim", plan.Claim))

	publish(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: updated.ID,
		Actor:    actorOf(actor),
		Payload: events.TicketUpdatedPayload{
			OldStatus:    current.Status,
			NewStatus:    updated.Status,
			AssignedToID: updated.AssignedToID,
			Claimed:      plan.Claim,
		},
	})
	return s.detail(ctx, actor, updated)
}

// Delete removes a ticket and its responses.
func (s *TicketService) Delete(ctx context.Context, actor *domain.Principal, ticketID string) error {
	ctx, span := tracer.Start(ctx, "TicketService.Delete")
	defer span.End()

	if err := requirePermission(actor, policy.DeleteTicket, "only administrators can delete tickets"); err != nil {
		return err
	}
	ticket, err := s.loadAccessible(ctx, actor, ticketID)
	if err != nil {
		return err
	}
	// ticketID may alias request memory; events outlive the request.
	if err := s.tickets.Delete(ctx, ticket.ID); err != nil {
		return notFoundOr(err, "ticket", ticket.ID)
	}
	s.logger.Info("ticket deleted", zap.String("ticket_id", ticket.ID), zap.String("actor_id", actor.UserID()))
	publish(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
	})
	return nil
}
