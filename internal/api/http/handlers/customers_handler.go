package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/api/dto"
	"github.com/deskline/helpdesk-service/internal/service"
)

// CustomersHandler exposes the customer directory to staff.
type CustomersHandler struct {
	service *service.CustomerService
}

// NewCustomersHandler constructs handler.
func NewCustomersHandler(customerService *service.CustomerService) *CustomersHandler {
	return &CustomersHandler{service: customerService}
}

// ListCustomers GET /api/customers?search=.
func (h *CustomersHandler) ListCustomers(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	items, err := h.service.List(c.UserContext(), principal, c.Query("search"))
	if err != nil {
		return err
	}
	resp := make([]*dto.CustomerResponse, 0, len(items))
	for i := range items {
		customer := customerResponse(&items[i].Customer)
		count := items[i].TicketCount
		customer.TicketCount = &count
		resp = append(resp, customer)
	}
	return respondList(c, resp, len(resp))
}

// CreateCustomer POST /api/customers.
func (h *CustomersHandler) CreateCustomer(c *fiber.Ctx) error {
	principal, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	var req dto.CustomerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	customer, err := h.service.Create(c.UserContext(), principal, service.CustomerInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, customerResponse(customer))
}
