package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskline/helpdesk-service/internal/api/http/handlers"
	"github.com/deskline/helpdesk-service/internal/auth"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/policy"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Responses      *handlers.ResponsesHandler
	Users          *handlers.UsersHandler
	Customers      *handlers.CustomersHandler
	Reports        *handlers.ReportsHandler
	AuthMiddleware *auth.AuthMiddleware
	RateLimiter    *RateLimiter
	Metrics        *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics.Handler())
	}

	authGroup := app.Group("/auth")
	if cfg.RateLimiter != nil {
		authGroup.Use(cfg.RateLimiter.Handler())
	}
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/magic-link", cfg.Auth.RequestMagicLink)
	authGroup.Post("/magic-link/verify", cfg.Auth.VerifyMagicLink)

	api := app.Group("/api", cfg.AuthMiddleware.Handle)
	api.Get("/me", cfg.Auth.Me)

	tickets := api.Group("/tickets")
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", auth.RequirePermission(policy.CreateTicket), cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", auth.RequirePermission(policy.UpdateTicket), cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequirePermission(policy.DeleteTicket), cfg.Tickets.DeleteTicket)

	responses := api.Group("/responses")
	responses.Get("/", cfg.Responses.ListResponses)
	responses.Post("/", auth.RequirePermission(policy.CreateResponse), cfg.Responses.CreateResponse)

	users := api.Group("/users", auth.RequirePermission(policy.ViewUsers))
	users.Get("/", cfg.Users.ListUsers)
	users.Post("/", auth.RequirePermission(policy.ManageUsers), cfg.Users.CreateUser)
	users.Get("/:id", cfg.Users.GetUser)
	users.Patch("/:id", auth.RequirePermission(policy.ManageUsers), cfg.Users.UpdateUser)

	customers := api.Group("/customers", auth.RequirePermission(policy.ViewCustomers))
	customers.Get("/", cfg.Customers.ListCustomers)
	customers.Post("/", cfg.Customers.CreateCustomer)

	reports := api.Group("/reports", auth.RequirePermission(policy.GenerateReports))
	reports.Get("/", cfg.Reports.Monthly)
	reports.Get("/pdf", cfg.Reports.MonthlyPDF)
}
