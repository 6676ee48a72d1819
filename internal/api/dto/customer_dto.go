package dto

import "time"

// CustomerRequest identifies or creates a customer profile.
type CustomerRequest struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone"`
	Company *string `json:"company"`
}

// CustomerResponse is a customer profile.
type CustomerResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Phone       *string   `json:"phone"`
	Company     *string   `json:"company"`
	UserID      *string   `json:"userId"`
	TicketCount *int      `json:"ticketCount,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
