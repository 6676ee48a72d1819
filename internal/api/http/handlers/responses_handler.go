package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/api/dto"
	"github.com/deskline/helpdesk-service/internal/service"
)

// ResponsesHandler manages the ticket thread.
type ResponsesHandler struct {
	service *service.ResponseService
}

// NewResponsesHandler constructs handler.
func NewResponsesHandler(responseService *service.ResponseService) *ResponsesHandler {
	return &ResponsesHandler{service: responseService}
}

// CreateResponse POST /api/responses.
func (h *ResponsesHandler) CreateResponse(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateResponseRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	view, err := h.service.Create(c.UserContext(), principal, service.ResponseCreateInput{
		TicketID:   req.TicketID,
		Message:    req.Message,
		IsInternal: req.IsInternal,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, responseResponse(view))
}

// ListResponses GET /api/responses?ticketId=.
func (h *ResponsesHandler) ListResponses(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	views, err := h.service.List(c.UserContext(), principal, c.Query("ticketId"))
	if err != nil {
		return err
	}
	return respondList(c, responseResponses(views), len(views))
}
