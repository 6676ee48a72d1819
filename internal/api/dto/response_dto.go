package dto

import (
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// CreateResponseRequest payload for POST /api/responses.
type CreateResponseRequest struct {
	TicketID   string `json:"ticketId"`
	Message    string `json:"message"`
	IsInternal bool   `json:"isInternal"`
}

// ResponseResponse is a thread message with its author.
type ResponseResponse struct {
	ID         string      `json:"id"`
	TicketID   string      `json:"ticketId"`
	UserID     string      `json:"userId"`
	Message    string      `json:"message"`
	IsInternal bool        `json:"isInternal"`
	AuthorName string      `json:"authorName"`
	AuthorRole domain.Role `json:"authorRole"`
	CreatedAt  time.Time   `json:"createdAt"`
}
