package dto

import (
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// AgentCountResponse is one row of the top-assignee table.
type AgentCountResponse struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Count  int    `json:"count"`
}

// MonthlyReportResponse mirrors the monthly aggregates.
type MonthlyReportResponse struct {
	Year               int                           `json:"year"`
	Month              int                           `json:"month"`
	From               time.Time                     `json:"from"`
	To                 time.Time                     `json:"to"`
	TotalTickets       int                           `json:"totalTickets"`
	ByStatus           map[domain.TicketStatus]int   `json:"byStatus"`
	ByPriority         map[domain.TicketPriority]int `json:"byPriority"`
	ByCategory         map[domain.TicketCategory]int `json:"byCategory"`
	ClosedTickets      int                           `json:"closedTickets"`
	AvgResolutionHours float64                       `json:"avgResolutionHours"`
	TopAgents          []AgentCountResponse          `json:"topAgents"`
	GeneratedAt        time.Time                     `json:"generatedAt"`
}
