package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/api/dto"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/service"
	apperrors "github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

const dateLayout = "2006-01-02"

// TicketsHandler manages ticket endpoints for every role. Visibility is
// decided by the service.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /api/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	filter, err := parseTicketFilter(c)
	if err != nil {
		return err
	}
	items, err := h.service.List(c.UserContext(), principal, filter)
	if err != nil {
		return err
	}
	return respondList(c, ticketListItems(items), len(items))
}

// CreateTicket POST /api/tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	input := service.TicketCreateInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		Priority:     req.Priority,
		Source:       req.Source,
		AssignedToID: req.AssignedToID,
	}
	if req.Customer != nil {
		input.Customer = &service.CustomerInput{
			Name:    req.Customer.Name,
			Email:   req.Customer.Email,
			Phone:   req.Customer.Phone,
			Company: req.Customer.Company,
		}
	}
	detail, err := h.service.Create(c.UserContext(), principal, input)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, ticketDetail(detail))
}

// GetTicket GET /api/tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, ticketDetail(detail))
}

// UpdateTicket PATCH /api/tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateTicketRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	patch := policy.TicketPatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		Status:      req.Status,
		Assignee: policy.AssigneeChange{
			Set:    req.AssignedToID.Set,
			UserID: req.AssignedToID.Value,
		},
	}
	detail, err := h.service.Update(c.UserContext(), principal, c.Params("id"), patch)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, ticketDetail(detail))
}

// DeleteTicket DELETE /api/tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.UserContext(), principal, c.Params("id")); err != nil {
		return err
	}
	return respondMessage(c, http.StatusOK, "ticket deleted")
}

func parseTicketFilter(c *fiber.Ctx) (service.TicketListFilter, error) {
	var filter service.TicketListFilter
	if raw := c.Query("status"); raw != "" {
		status := domain.TicketStatus(strings.ToUpper(raw))
		if !status.Valid() {
			return filter, invalidQuery("status", raw)
		}
		filter.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := domain.TicketPriority(strings.ToUpper(raw))
		if !priority.Valid() {
			return filter, invalidQuery("priority", raw)
		}
		filter.Priority = &priority
	}
	if raw := c.Query("category"); raw != "" {
		category := domain.TicketCategory(strings.ToUpper(raw))
		if !category.Valid() {
			return filter, invalidQuery("category", raw)
		}
		filter.Category = &category
	}
	switch raw := c.Query("assignedToId"); raw {
	case "":
	case "unassigned":
		filter.Unassigned = true
	default:
		filter.AssignedToID = &raw
	}
	if raw := c.Query("dateFrom"); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, invalidQuery("dateFrom", raw)
		}
		filter.CreatedFrom = &from
	}
	if raw := c.Query("dateTo"); raw != "" {
		day, err := time.Parse(dateLayout, raw)
		if err != nil {
			return filter, invalidQuery("dateTo", raw)
		}
		to := day.Add(24*time.Hour - time.Millisecond)
		filter.CreatedTo = &to
	}
	return filter, nil
}

func invalidQuery(name, value string) error {
	return apperrors.NewValidationError("invalid "+name, map[string]any{name: value})
}
