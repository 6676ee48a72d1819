package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/api/dto"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/internal/service"
)

// UsersHandler exposes account administration.
type UsersHandler struct {
	service *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{service: userService}
}

// ListUsers GET /api/users.
func (h *UsersHandler) ListUsers(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var filter repository.UserFilter
	if raw := c.Query("role"); raw != "" {
		role := domain.Role(strings.ToUpper(raw))
		filter.Role = &role
	}
	if raw := c.Query("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return invalidQuery("active", raw)
		}
		filter.Active = &active
	}

	items, err := h.service.List(c.UserContext(), principal, filter)
	if err != nil {
		return err
	}
	resp := make([]dto.UserResponse, 0, len(items))
	for i := range items {
		user := userResponse(&items[i].User)
		count := items[i].AssignedTickets
		user.AssignedTickets = &count
		resp = append(resp, user)
	}
	return respondList(c, resp, len(resp))
}

// CreateUser POST /api/users.
func (h *UsersHandler) CreateUser(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CreateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.service.Create(c.UserContext(), principal, service.UserCreateInput{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, userResponse(user))
}

// GetUser GET /api/users/:id.
func (h *UsersHandler) GetUser(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	detail, err := h.service.Get(c.UserContext(), principal, c.Params("id"))
	if err != nil {
		return err
	}
	recent := make([]dto.TicketResponse, 0, len(detail.Stats.RecentTickets))
	for i := range detail.Stats.RecentTickets {
		recent = append(recent, ticketResponse(&detail.Stats.RecentTickets[i]))
	}
	return respond(c, http.StatusOK, dto.UserDetailResponse{
		UserResponse: userResponse(&detail.User),
		Stats: dto.UserStatsResponse{
			TicketsByStatus:          detail.Stats.TicketsByStatus,
			TicketsByPriority:        detail.Stats.TicketsByPriority,
			TotalAssigned:            detail.Stats.TotalAssigned,
			TotalResponses:           detail.Stats.TotalResponses,
			AvgFirstResponseHours:    detail.Stats.AvgFirstResponseHours,
			ResolutionRatePercentage: detail.Stats.ResolutionRatePercentage,
			RecentTickets:            recent,
		},
	})
}

// UpdateUser PATCH /api/users/:id.
func (h *UsersHandler) UpdateUser(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	user, err := h.service.Update(c.UserContext(), principal, c.Params("id"), service.UserPatch{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Active:   req.Active,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, userResponse(user))
}
