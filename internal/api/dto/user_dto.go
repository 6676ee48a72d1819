package dto

import (
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// UserSummary is the public shape of an account embedded in other payloads.
type UserSummary struct {
	ID     string      `json:"id"`
	Email  string      `json:"email"`
	Name   string      `json:"name"`
	Role   domain.Role `json:"role"`
	Active bool        `json:"active"`
}

// UserResponse is a full account record. Password hashes are never exposed.
type UserResponse struct {
	UserSummary
	HasPassword     bool      `json:"hasPassword"`
	AssignedTickets *int      `json:"assignedTickets,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// UserStatsResponse summarizes an account's ticket activity.
type UserStatsResponse struct {
	TicketsByStatus          map[domain.TicketStatus]int   `json:"ticketsByStatus"`
	TicketsByPriority        map[domain.TicketPriority]int `json:"ticketsByPriority"`
	TotalAssigned            int                           `json:"totalAssigned"`
	TotalResponses           int                           `json:"totalResponses"`
	AvgFirstResponseHours    float64                       `json:"avgFirstResponseHours"`
	ResolutionRatePercentage float64                       `json:"resolutionRatePercentage"`
	RecentTickets            []TicketResponse              `json:"recentTickets"`
}

// UserDetailResponse is an account with its statistics.
type UserDetailResponse struct {
	UserResponse
	Stats UserStatsResponse `json:"stats"`
}

// CreateUserRequest payload for POST /api/users.
type CreateUserRequest struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// UpdateUserRequest payload for PATCH /api/users/:id. Absent fields are kept.
type UpdateUserRequest struct {
	Name     *string      `json:"name"`
	Email    *string      `json:"email"`
	Role     *domain.Role `json:"role"`
	Active   *bool        `json:"active"`
	Password *string      `json:"password"`
}
