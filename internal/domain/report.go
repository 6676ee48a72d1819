package domain

import "time"

// UserStats summarizes an account's ticket activity.
type UserStats struct {
	TicketsByStatus          map[TicketStatus]int
	TicketsByPriority        map[TicketPriority]int
	TotalAssigned            int
	TotalResponses           int
	AvgFirstResponseHours    float64
	ResolutionRatePercentage float64
	RecentTickets            []Ticket
}

// AgentCount pairs an assignee with a ticket count.
type AgentCount struct {
	UserID string
	Name   string
	Count  int
}

// MonthlyReport aggregates ticket activity for one calendar month.
type MonthlyReport struct {
	Year               int
	Month              time.Month
	From               time.Time
	To                 time.Time
	TotalTickets       int
	ByStatus           map[TicketStatus]int
	ByPriority         map[TicketPriority]int
	ByCategory         map[TicketCategory]int
	ClosedTickets      int
	AvgResolutionHours float64
	TopAgents          []AgentCount
	GeneratedAt        time.Time
}
