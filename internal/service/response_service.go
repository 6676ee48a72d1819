package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/repository"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// ResponseService appends to and reads ticket threads.
type ResponseService struct {
	tickets    *TicketService
	responses  repository.ResponseRepository
	ticketRepo repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        Clock
}

// ResponseDependencies bundles collaborators for the response service.
type ResponseDependencies struct {
	Tickets      *TicketService
	TicketRepo   repository.TicketRepository
	ResponseRepo repository.ResponseRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Clock        Clock
}

// NewResponseService constructs the service.
func NewResponseService(deps ResponseDependencies) *ResponseService {
	return &ResponseService{
		tickets:    deps.Tickets,
		responses:  deps.ResponseRepo,
		ticketRepo: deps.TicketRepo,
		dispatcher: deps.Dispatcher,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrNow(deps.Clock),
	}
}

// ResponseCreateInput carries a new thread message.
type ResponseCreateInput struct {
	TicketID   string
	Message    string
	IsInternal bool
}

// Create posts a response. The insert only lands while the ticket is not
// resolved or closed. A public response on an OPEN ticket moves it to
// IN_PROGRESS, and a public staff response notifies the customer.
func (s *ResponseService) Create(ctx context.Context, actor *domain.Principal, input ResponseCreateInput) (*domain.ResponseView, error) {
	ctx, span := tracer.Start(ctx, "ResponseService.Create")
	defer span.End()

	if err := requirePermission(actor, policy.CreateResponse, "not allowed to respond to tickets"); err != nil {
		return nil, err
	}
	message := strings.TrimSpace(input.Message)
	if input.TicketID == "" || message == "" {
		return nil, apperrors.NewValidationError("ticketId and message are required", nil)
	}

	ticket, err := s.tickets.loadAccessible(ctx, actor, input.TicketID)
	if err != nil {
		return nil, err
	}
	if !policy.AcceptsResponses(ticket) {
		return nil, apperrors.NewTicketClosed()
	}

	response := &domain.Response{
		TicketID:   ticket.ID,
		UserID:     actor.UserID(),
		Message:    message,
		IsInternal: policy.EffectiveInternal(actor.Role(), input.IsInternal),
	}
	if err := s.responses.CreateIfTicketOpen(ctx, response); err != nil {
		if errors.Is(err, repository.ErrTicketClosed) {
			return nil, apperrors.NewTicketClosed()
		}
		return nil, notFoundOr(err, "ticket", ticket.ID)
	}

	if policy.AdvancesTicket(ticket, response.IsInternal) {
		if _, err := s.ticketRepo.AdvanceStatus(ctx, ticket.ID, domain.TicketStatusOpen, domain.TicketStatusInProgress); err != nil {
			// The response is committed; a failed status bump is not worth failing it.
			s.logger.Warn("advance ticket status failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	view := &domain.ResponseView{
		Response:   *response,
		AuthorName: displayName(actor.User),
		AuthorRole: actor.Role(),
	}

	publish(ctx, s.dispatcher, s.logger, s.now, events.Event{
		Type:     events.EventResponseCreated,
		TicketID: ticket.ID,
		Actor:    actorOf(actor),
		Payload: events.ResponseCreatedPayload{
			ResponseID: response.ID,
			AuthorName: view.AuthorName,
			Message:    response.Message,
			IsInternal: response.IsInternal,
			Notify:     policy.NotifiesCustomer(actor.Role(), response.IsInternal),
		},
	})
	return view, nil
}

// List returns the ticket's responses oldest first. Internal notes are
// withheld from customers.
func (s *ResponseService) List(ctx context.Context, actor *domain.Principal, ticketID string) ([]domain.ResponseView, error) {
	ctx, span := tracer.Start(ctx, "ResponseService.List")
	defer span.End()

	if ticketID == "" {
		return nil, apperrors.NewValidationError("ticketId is required", nil)
	}
	ticket, err := s.tickets.loadAccessible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses.ListByTicket(ctx, ticket.ID, policy.CanSeeInternal(actor.Role()))
	if err != nil {
		return nil, err
	}
	return policy.VisibleResponses(actor.Role(), responses), nil
}
