package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// OptionalString tells an absent JSON field apart from an explicit null.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked when the field is present.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// CreateTicketRequest payload. Customer is required for staff callers and
// ignored for customers.
type CreateTicketRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Category     domain.TicketCategory `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
	Source       domain.TicketSource   `json:"source"`
	Customer     *CustomerRequest      `json:"customer"`
	AssignedToID *string               `json:"assignedToId"`
}

// UpdateTicketRequest payload. assignedToId: null unassigns.
type UpdateTicketRequest struct {
	Title        *string                `json:"title"`
	Description  *string                `json:"description"`
	Category     *domain.TicketCategory `json:"category"`
	Priority     *domain.TicketPriority `json:"priority"`
	Status       *domain.TicketStatus   `json:"status"`
	AssignedToID OptionalString         `json:"assignedToId"`
}

// TicketResponse is the ticket record.
type TicketResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	Category     domain.TicketCategory `json:"category"`
	Priority     domain.TicketPriority `json:"priority"`
	Status       domain.TicketStatus   `json:"status"`
	Source       domain.TicketSource   `json:"source"`
	CustomerID   string                `json:"customerId"`
	AssignedToID *string               `json:"assignedToId"`
	AssignedAt   *time.Time            `json:"assignedAt"`
	ClosedAt     *time.Time            `json:"closedAt"`
	CreatedAt    time.Time             `json:"createdAt"`
	UpdatedAt    time.Time             `json:"updatedAt"`
}

// TicketListItemResponse is a listing row.
type TicketListItemResponse struct {
	TicketResponse
	CustomerName  string  `json:"customerName"`
	CustomerEmail string  `json:"customerEmail"`
	AssigneeName  *string `json:"assigneeName"`
	ResponseCount int     `json:"responseCount"`
}

// TicketDetailResponse is a ticket with its customer, assignee and thread.
type TicketDetailResponse struct {
	TicketResponse
	Customer   *CustomerResponse  `json:"customer"`
	AssignedTo *UserSummary       `json:"assignedTo"`
	Responses  []ResponseResponse `json:"responses"`
}
