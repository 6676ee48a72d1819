package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketStatuses lists statuses in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusInProgress,
	TicketStatusPending,
	TicketStatusResolved,
	TicketStatusClosed,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Terminal reports whether the status blocks new responses.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// TicketPriorities lists priorities from lowest to highest.
var TicketPriorities = []TicketPriority{
	TicketPriorityLow,
	TicketPriorityMedium,
	TicketPriorityHigh,
	TicketPriorityUrgent,
}

// Valid reports whether p is a known priority.
func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if p == candidate {
			return true
		}
	}
	return false
}

// TicketCategory classifies the request.
type TicketCategory string

const (
	TicketCategoryGeneral        TicketCategory = "GENERAL"
	TicketCategoryTechnical      TicketCategory = "TECHNICAL"
	TicketCategoryBilling        TicketCategory = "BILLING"
	TicketCategoryFeatureRequest TicketCategory = "FEATURE_REQUEST"
	TicketCategoryBugReport      TicketCategory = "BUG_REPORT"
	TicketCategoryOther          TicketCategory = "OTHER"
)

// TicketCategories lists every category.
var TicketCategories = []TicketCategory{
	TicketCategoryGeneral,
	TicketCategoryTechnical,
	TicketCategoryBilling,
	TicketCategoryFeatureRequest,
	TicketCategoryBugReport,
	TicketCategoryOther,
}

// Valid reports whether c is a known category.
func (c TicketCategory) Valid() bool {
	for _, candidate := range TicketCategories {
		if c == candidate {
			return true
		}
	}
	return false
}

// TicketSource records the channel a ticket arrived through.
type TicketSource string

const (
	TicketSourceWebForm TicketSource = "WEB_FORM"
	TicketSourceEmail   TicketSource = "EMAIL"
	TicketSourcePhone   TicketSource = "PHONE"
	TicketSourceChat    TicketSource = "CHAT"
)

// Valid reports whether s is a known source.
func (s TicketSource) Valid() bool {
	switch s {
	case TicketSourceWebForm, TicketSourceEmail, TicketSourcePhone, TicketSourceChat:
		return true
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID           string
	Title        string
	Description  string
	Category     TicketCategory
	Priority     TicketPriority
	Status       TicketStatus
	Source       TicketSource
	CustomerID   string
	AssignedToID *string
	AssignedAt   *time.Time
	ClosedAt     *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAssigned reports whether the ticket has an assignee.
func (t *Ticket) IsAssigned() bool {
	return t.AssignedToID != nil
}

// AssignedTo reports whether userID is the current assignee.
func (t *Ticket) AssignedTo(userID string) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

// Unclaimed reports whether the ticket sits in the open queue.
func (t *Ticket) Unclaimed() bool {
	return t.Status == TicketStatusOpen && t.AssignedToID == nil
}

// TicketDetail bundles a ticket with the records shown alongside it.
type TicketDetail struct {
	Ticket     Ticket
	Customer   *Customer
	AssignedTo *User
	Responses  []ResponseView
}

// TicketListItem is a ticket row enriched for listings.
type TicketListItem struct {
	Ticket        Ticket
	CustomerName  string
	CustomerEmail string
	AssigneeName  *string
	ResponseCount int
}
