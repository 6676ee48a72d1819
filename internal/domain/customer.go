package domain

import "time"

// Customer is a contact profile that owns tickets. UserID is a weak link to
// the CUSTOMER account that signs in with the same email, if any.
type Customer struct {
	ID        string
	Name      string
	Email     string
	Phone     *string
	Company   *string
	UserID    *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CustomerListItem is a customer row with its ticket count.
type CustomerListItem struct {
	Customer    Customer
	TicketCount int
}
