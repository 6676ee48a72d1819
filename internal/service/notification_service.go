package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/notify"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/repository"
)

// NotificationService turns domain events into outbound messages. Delivery
// is best effort: failures are logged and counted, never returned to the
// operation that raised the event.
type NotificationService struct {
	tickets   repository.TicketRepository
	customers repository.CustomerRepository
	sender    notify.Sender
	metrics   *observability.Metrics
	logger    *zap.Logger
	publicURL string
}

// NotificationDependencies bundles collaborators for notifications.
type NotificationDependencies struct {
	TicketRepo   repository.TicketRepository
	CustomerRepo repository.CustomerRepository
	Sender       notify.Sender
	Metrics      *observability.Metrics
	Logger       *zap.Logger
	PublicURL    string
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	return &NotificationService{
		tickets:   deps.TicketRepo,
		customers: deps.CustomerRepo,
		sender:    deps.Sender,
		metrics:   deps.Metrics,
		logger:    loggerOrNop(deps.Logger),
		publicURL: deps.PublicURL,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	dispatcher.Subscribe(events.EventResponseCreated, n.handleResponseCreated)
	dispatcher.Subscribe(events.EventMagicLinkRequested, n.handleMagicLinkRequested)
}

// Notifies reports whether handling event would send a message.
func (n *NotificationService) Notifies(event events.Event) bool {
	switch event.Type {
	case events.EventMagicLinkRequested:
		return true
	case events.EventResponseCreated:
		payload, ok := event.Payload.(events.ResponseCreatedPayload)
		return ok && payload.Notify
	}
	return false
}

func (n *NotificationService) handleResponseCreated(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.ResponseCreatedPayload)
	if !ok || !payload.Notify {
		return nil
	}
	ctx, span := tracer.Start(ctx, "NotificationService.ResponseCreated")
	defer span.End()

	ticket, err := n.tickets.GetByID(ctx, event.TicketID)
	if err != nil {
		n.failed(event, fmt.Errorf("load ticket: %w", err))
		return nil
	}
	customer, err := n.customers.GetByID(ctx, ticket.CustomerID)
	if err != nil {
		n.failed(event, fmt.Errorf("load customer: %w", err))
		return nil
	}

	agentName := payload.AuthorName
	if agentName == "" {
		agentName = "The support team"
	}
	msg, err := notify.TicketResponseMessage(n.publicURL, notify.TicketResponse{
		CustomerEmail: customer.Email,
		CustomerName:  customer.Name,
		TicketTitle:   ticket.Title,
		TicketID:      ticket.ID,
		AgentName:     agentName,
		Message:       payload.Message,
	})
	if err != nil {
		n.failed(event, err)
		return nil
	}
	n.deliver(ctx, event, msg)
	return nil
}

func (n *NotificationService) handleMagicLinkRequested(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.MagicLinkRequestedPayload)
	if !ok {
		return nil
	}
	msg, err := notify.MagicLinkMessage(payload.Email, payload.Link, payload.TTL)
	if err != nil {
		n.failed(event, err)
		return nil
	}
	n.deliver(ctx, event, msg)
	return nil
}

func (n *NotificationService) deliver(ctx context.Context, event events.Event, msg notify.Message) {
	if n.sender == nil {
		return
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.failed(event, err)
		return
	}
	n.metrics.RecordNotification("sent")
	n.logger.Debug("notification sent",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
}

func (n *NotificationService) failed(event events.Event, err error) {
	n.metrics.RecordNotification("failed")
	n.logger.Warn("notification failed",
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Error(err))
}
