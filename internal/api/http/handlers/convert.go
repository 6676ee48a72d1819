package handlers

import (
	"github.com/deskline/helpdesk-service/internal/api/dto"
	"github.com/deskline/helpdesk-service/internal/domain"
)

func userSummary(u *domain.User) dto.UserSummary {
	return dto.UserSummary{
		ID:     u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Role:   u.Role,
		Active: u.Active,
	}
}

func userResponse(u *domain.User) dto.UserResponse {
	return dto.UserResponse{
		UserSummary: userSummary(u),
		HasPassword: u.HasPassword(),
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func customerResponse(c *domain.Customer) *dto.CustomerResponse {
	if c == nil {
		return nil
	}
	return &dto.CustomerResponse{
		ID:        c.ID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		UserID:    c.UserID,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	return dto.TicketResponse{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		Category:     t.Category,
		Priority:     t.Priority,
		Status:       t.Status,
		Source:       t.Source,
		CustomerID:   t.CustomerID,
		AssignedToID: t.AssignedToID,
		AssignedAt:   t.AssignedAt,
		ClosedAt:     t.ClosedAt,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func ticketListItems(items []domain.TicketListItem) []dto.TicketListItemResponse {
	resp := make([]dto.TicketListItemResponse, 0, len(items))
	for i := range items {
		item := &items[i]
		resp = append(resp, dto.TicketListItemResponse{
			TicketResponse: ticketResponse(&item.Ticket),
			CustomerName:   item.CustomerName,
			CustomerEmail:  item.CustomerEmail,
			AssigneeName:   item.AssigneeName,
			ResponseCount:  item.ResponseCount,
		})
	}
	return resp
}

func ticketDetail(d *domain.TicketDetail) dto.TicketDetailResponse {
	resp := dto.TicketDetailResponse{
		TicketResponse: ticketResponse(&d.Ticket),
		Customer:       customerResponse(d.Customer),
		Responses:      responseResponses(d.Responses),
	}
	if d.AssignedTo != nil {
		summary := userSummary(d.AssignedTo)
		resp.AssignedTo = &summary
	}
	return resp
}

func responseResponse(r *domain.ResponseView) dto.ResponseResponse {
	return dto.ResponseResponse{
		ID:         r.ID,
		TicketID:   r.TicketID,
		UserID:     r.UserID,
		Message:    r.Message,
		IsInternal: r.IsInternal,
		AuthorName: r.AuthorName,
		AuthorRole: r.AuthorRole,
		CreatedAt:  r.CreatedAt,
	}
}

func responseResponses(views []domain.ResponseView) []dto.ResponseResponse {
	resp := make([]dto.ResponseResponse, 0, len(views))
	for i := range views {
		resp = append(resp, responseResponse(&views[i]))
	}
	return resp
}

func monthlyReport(r *domain.MonthlyReport) dto.MonthlyReportResponse {
	agents := make([]dto.AgentCountResponse, 0, len(r.TopAgents))
	for _, a := range r.TopAgents {
		agents = append(agents, dto.AgentCountResponse{UserID: a.UserID, Name: a.Name, Count: a.Count})
	}
	return dto.MonthlyReportResponse{
		Year:               r.Year,
		Month:              int(r.Month),
		From:               r.From,
		To:                 r.To,
		TotalTickets:       r.TotalTickets,
		ByStatus:           r.ByStatus,
		ByPriority:         r.ByPriority,
		ByCategory:         r.ByCategory,
		ClosedTickets:      r.ClosedTickets,
		AvgResolutionHours: r.AvgResolutionHours,
		TopAgents:          agents,
		GeneratedAt:        r.GeneratedAt,
	}
}
