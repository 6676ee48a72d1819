package events

import (
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketUpdated      EventType = "ticket_updated"
	EventTicketDeleted      EventType = "ticket_deleted"
	EventResponseCreated    EventType = "response_created"
	EventMagicLinkRequested EventType = "magic_link_requested"
)

// Actor identifies who caused an event.
type Actor struct {
	UserID string      `json:"user_id,omitempty"`
	Role   domain.Role `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID   string                `json:"customer_id"`
	Priority     domain.TicketPriority `json:"priority"`
	Category     domain.TicketCategory `json:"category"`
	Title        string                `json:"title"`
	AssignedToID *string               `json:"assigned_to_id,omitempty"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	AssignedToID *string             `json:"assigned_to_id,omitempty"`
	Claimed      bool                `json:"claimed,omitempty"`
}

// ResponseCreatedPayload payload. Notify is set when the ticket's customer
// should receive an email.
type ResponseCreatedPayload struct {
	ResponseID string `json:"response_id"`
	AuthorName string `json:"author_name"`
	Message    string `json:"message"`
	IsInternal bool   `json:"is_internal"`
	Notify     bool   `json:"notify"`
}

// MagicLinkRequestedPayload payload.
type MagicLinkRequestedPayload struct {
	Email string        `json:"email"`
	Link  string        `json:"-"`
	TTL   time.Duration `json:"ttl"`
}
