package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/api/http/handlers"
	"github.com/deskline/helpdesk-service/internal/auth"
	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/report"
	"github.com/deskline/helpdesk-service/internal/repository/memory"
	"github.com/deskline/helpdesk-service/internal/service"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   *int            `json:"count"`
	Message string          `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	t      *testing.T
	app    *fiber.App
	store  *memory.Store
	tokens *auth.TokenManager

	admin, agent, customer *domain.User
}

func newTestServer(t *testing.T, limiter *RateLimiter) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	store := memory.NewStore()
	dispatcher := events.NewInMemoryDispatcher(logger)
	cfg := config.Config{
		App:  config.AppConfig{PublicURL: "https://help.example.com"},
		Auth: config.AuthConfig{JWTSecret: "router-secret", AccessTokenTTLMinutes: 60, MagicLinkTTLMinutes: 15},
	}

	identity := service.NewIdentityService(store.Users(), store.Customers(), logger)
	tickets := service.NewTicketService(service.TicketDependencies{
		TicketRepo:   store.Tickets(),
		CustomerRepo: store.Customers(),
		UserRepo:     store.Users(),
		ResponseRepo: store.Responses(),
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Logger:       logger,
	})
	responses := service.NewResponseService(service.ResponseDependencies{
		Tickets:      tickets,
		TicketRepo:   store.Tickets(),
		ResponseRepo: store.Responses(),
		Dispatcher:   dispatcher,
		Logger:       logger,
	})
	authService := service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:     store.Users(),
		CustomerRepo: store.Customers(),
		MagicLinks:   auth.NewMemoryMagicLinks(time.Now),
		Dispatcher:   dispatcher,
		Logger:       logger,
	})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler("helpdesk-service", "test", nil, nil),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(tickets),
		Responses:      handlers.NewResponsesHandler(responses),
		Users:          handlers.NewUsersHandler(service.NewUserService(store.Users(), 4, logger)),
		Customers:      handlers.NewCustomersHandler(service.NewCustomerService(store.Customers())),
		Reports:        handlers.NewReportsHandler(service.NewReportService(store.Reports(), report.NewPDFRenderer(), logger, nil)),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), identity),
		RateLimiter:    limiter,
		Metrics:        metrics,
	})

	s := &testServer{t: t, app: app, store: store, tokens: authService.TokenManager()}
	s.admin = s.user("admin@example.com", "Ada Admin", domain.RoleAdmin)
	s.agent = s.user("agent@example.com", "Alice Agent", domain.RoleAgent)
	s.customer = s.user("kim@example.com", "Kim", domain.RoleCustomer)
	return s
}

func (s *testServer) user(email, name string, role domain.Role) *domain.User {
	s.t.Helper()
	u := &domain.User{Email: email, Name: name, Role: role, Active: true}
	if role.IsStaff() {
		hash, err := auth.HashPassword("password123", 4)
		if err != nil {
			s.t.Fatalf("hash: %v", err)
		}
		u.PasswordHash = &hash
	}
	if err := s.store.Users().Create(context.Background(), u); err != nil {
		s.t.Fatalf("create user: %v", err)
	}
	return u
}

func (s *testServer) token(u *domain.User) string {
	s.t.Helper()
	token, _, err := s.tokens.GenerateToken(u.Email)
	if err != nil {
		s.t.Fatalf("token: %v", err)
	}
	return token
}

// do sends a request as u (anonymous when nil) and decodes the envelope.
func (s *testServer) do(method, path string, u *domain.User, body any) (int, envelope) {
	s.t.Helper()
	resp := s.raw(method, path, u, body)
	defer resp.Body.Close()
	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

func (s *testServer) raw(method, path string, u *domain.User, body any) *http.Response {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			s.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if u != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(u))
	}
	resp, err := s.app.Test(req, -1)
	if err != nil {
		s.t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode data %s: %v", raw, err)
	}
	return out
}

func expectError(t *testing.T, status int, env envelope, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus || env.Success || env.Error == nil || env.Error.Code != wantCode {
		t.Fatalf("expected %d %s, got %d %+v", wantStatus, wantCode, status, env)
	}
}

type ticketBody struct {
	ID           string              `json:"id"`
	Status       domain.TicketStatus `json:"status"`
	AssignedToID *string             `json:"assignedToId"`
	Title        string              `json:"title"`
	Responses    []struct {
		Message    string `json:"message"`
		IsInternal bool   `json:"isInternal"`
	} `json:"responses"`
}

func TestHealthReportsDisabledDependencies(t *testing.T) {
	s := newTestServer(t, nil)
	resp := s.raw(http.MethodGet, "/health/ready", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected ready, got %d", resp.StatusCode)
	}
	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Dependencies["postgres"] != "disabled" || body.Dependencies["redis"] != "disabled" {
		t.Fatalf("unexpected dependencies %+v", body.Dependencies)
	}
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t, nil)
	status, env := s.do(http.MethodGet, "/nowhere", nil, nil)
	expectError(t, status, env, http.StatusNotFound, "NOT_FOUND")
}

func TestAPIRequiresBearerToken(t *testing.T) {
	s := newTestServer(t, nil)
	status, env := s.do(http.MethodGet, "/api/tickets", nil, nil)
	expectError(t, status, env, http.StatusUnauthorized, "UNAUTHENTICATED")
}

func TestLoginThenMe(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.do(http.MethodPost, "/auth/login", nil, map[string]string{
		"email": "ADMIN@example.com", "password": "password123",
	})
	if status != http.StatusOK || !env.Success {
		t.Fatalf("login failed: %d %+v", status, env)
	}
	session := decode[struct {
		Token string `json:"token"`
		User  struct {
			Role domain.Role `json:"role"`
		} `json:"user"`
	}](t, env.Data)
	if session.Token == "" || session.User.Role != domain.RoleAdmin {
		t.Fatalf("unexpected session %+v", session)
	}

	status, env = s.do(http.MethodPost, "/auth/login", nil, map[string]string{
		"email": "admin@example.com", "password": "wrong-password",
	})
	expectError(t, status, env, http.StatusUnauthorized, "UNAUTHENTICATED")

	status, env = s.do(http.MethodGet, "/api/me", s.admin, nil)
	if status != http.StatusOK {
		t.Fatalf("me: %d %+v", status, env)
	}
	me := decode[struct {
		Capabilities []string `json:"capabilities"`
	}](t, env.Data)
	found := false
	for _, c := range me.Capabilities {
		if c == "MANAGE_USERS" {
			found = true
		}
	}
	if !found {
		t.Fatalf("admin capabilities missing MANAGE_USERS: %v", me.Capabilities)
	}
}

func TestCustomerTicketLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.do(http.MethodPost, "/api/tickets", s.customer, map[string]any{
		"title": "Invoice missing", "description": "March invoice never arrived", "category": "BILLING",
	})
	if status != http.StatusCreated {
		t.Fatalf("create: %d %+v", status, env)
	}
	created := decode[ticketBody](t, env.Data)
	if created.Status != domain.TicketStatusOpen || created.AssignedToID != nil {
		t.Fatalf("unexpected new ticket %+v", created)
	}

	status, env = s.do(http.MethodPatch, "/api/tickets/"+created.ID, s.agent, map[string]any{"assignedToId": s.agent.ID})
	if status != http.StatusOK {
		t.Fatalf("claim: %d %+v", status, env)
	}
	claimed := decode[ticketBody](t, env.Data)
	if claimed.Status != domain.TicketStatusInProgress || claimed.AssignedToID == nil || *claimed.AssignedToID != s.agent.ID {
		t.Fatalf("unexpected claimed ticket %+v", claimed)
	}

	for _, body := range []map[string]any{
		{"ticketId": created.ID, "message": "checking with billing", "isInternal": true},
		{"ticketId": created.ID, "message": "We re-sent the invoice."},
	} {
		if status, env := s.do(http.MethodPost, "/api/responses", s.agent, body); status != http.StatusCreated {
			t.Fatalf("respond: %d %+v", status, env)
		}
	}

	status, env = s.do(http.MethodGet, "/api/tickets/"+created.ID, s.customer, nil)
	if status != http.StatusOK {
		t.Fatalf("get: %d %+v", status, env)
	}
	seen := decode[ticketBody](t, env.Data)
	if len(seen.Responses) != 1 || seen.Responses[0].IsInternal {
		t.Fatalf("customer should see only the public response, got %+v", seen.Responses)
	}

	status, env = s.do(http.MethodGet, "/api/responses?ticketId="+created.ID, s.agent, nil)
	if status != http.StatusOK || env.Count == nil || *env.Count != 2 {
		t.Fatalf("agent should see both responses, got %d %+v", status, env)
	}

	status, env = s.do(http.MethodPatch, "/api/tickets/"+created.ID, s.customer, map[string]any{"status": "CLOSED"})
	expectError(t, status, env, http.StatusForbidden, "FORBIDDEN")
}

func TestPatchDistinguishesNullFromAbsentAssignee(t *testing.T) {
	s := newTestServer(t, nil)
	status, env := s.do(http.MethodPost, "/api/tickets", s.admin, map[string]any{
		"title":        "VPN drops",
		"description":  "Every hour",
		"customer":     map[string]string{"name": "Lee", "email": "lee@example.com"},
		"assignedToId": s.agent.ID,
	})
	if status != http.StatusCreated {
		t.Fatalf("create: %d %+v", status, env)
	}
	ticket := decode[ticketBody](t, env.Data)

	status, env = s.do(http.MethodPatch, "/api/tickets/"+ticket.ID, s.admin, map[string]any{"title": "VPN drops hourly"})
	if status != http.StatusOK {
		t.Fatalf("patch title: %d %+v", status, env)
	}
	if got := decode[ticketBody](t, env.Data); got.AssignedToID == nil || got.Title != "VPN drops hourly" {
		t.Fatalf("absent assignedToId must keep assignment, got %+v", got)
	}

	status, env = s.do(http.MethodPatch, "/api/tickets/"+ticket.ID, s.admin, map[string]any{"assignedToId": nil})
	if status != http.StatusOK {
		t.Fatalf("unassign: %d %+v", status, env)
	}
	if got := decode[ticketBody](t, env.Data); got.AssignedToID != nil {
		t.Fatalf("null assignedToId must unassign, got %+v", got)
	}
}

func TestTicketQueryValidation(t *testing.T) {
	s := newTestServer(t, nil)
	for _, query := range []string{"status=bogus", "priority=NOW", "category=x", "dateFrom=2024-13-01", "dateTo=yesterday"} {
		status, env := s.do(http.MethodGet, "/api/tickets?"+query, s.admin, nil)
		expectError(t, status, env, http.StatusBadRequest, "VALIDATION_FAILED")
	}

	status, env := s.do(http.MethodGet, "/api/tickets?status=open&assignedToId=unassigned&dateTo=2999-01-01", s.admin, nil)
	if status != http.StatusOK || env.Count == nil {
		t.Fatalf("expected list, got %d %+v", status, env)
	}
}

func TestMissingTicketStatusByRole(t *testing.T) {
	s := newTestServer(t, nil)
	status, env := s.do(http.MethodGet, "/api/tickets/00000000-0000-0000-0000-000000000000", s.admin, nil)
	expectError(t, status, env, http.StatusNotFound, "NOT_FOUND")
	status, env = s.do(http.MethodGet, "/api/tickets/00000000-0000-0000-0000-000000000000", s.agent, nil)
	expectError(t, status, env, http.StatusForbidden, "FORBIDDEN")
}

func TestRouteGuards(t *testing.T) {
	s := newTestServer(t, nil)
	cases := []struct {
		name   string
		method string
		path   string
		user   *domain.User
		body   any
	}{
		{"agent lists users", http.MethodGet, "/api/users", s.agent, nil},
		{"agent creates user", http.MethodPost, "/api/users", s.agent, map[string]string{"email": "n@example.com"}},
		{"customer lists customers", http.MethodGet, "/api/customers", s.customer, nil},
		{"customer creates customer", http.MethodPost, "/api/customers", s.customer, map[string]string{"name": "Z", "email": "z@example.com"}},
		{"agent deletes ticket", http.MethodDelete, "/api/tickets/any", s.agent, nil},
		{"agent reads reports", http.MethodGet, "/api/reports", s.agent, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := s.do(tc.method, tc.path, tc.user, tc.body)
			expectError(t, status, env, http.StatusForbidden, "FORBIDDEN")
		})
	}
}

func TestUsersAndCustomersEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.do(http.MethodPost, "/api/users", s.admin, map[string]string{
		"email": "new.agent@example.com", "name": "New Agent", "password": "longenough",
	})
	if status != http.StatusCreated {
		t.Fatalf("create user: %d %+v", status, env)
	}
	created := decode[struct {
		ID   string      `json:"id"`
		Role domain.Role `json:"role"`
	}](t, env.Data)
	if created.Role != domain.RoleAgent {
		t.Fatalf("expected default AGENT role, got %s", created.Role)
	}

	status, env = s.do(http.MethodPost, "/api/users", s.admin, map[string]string{
		"email": "new.agent@example.com", "name": "Again", "password": "longenough",
	})
	expectError(t, status, env, http.StatusConflict, "CONFLICT")

	status, env = s.do(http.MethodPatch, "/api/users/"+created.ID, s.admin, map[string]any{"active": false})
	if status != http.StatusOK {
		t.Fatalf("deactivate: %d %+v", status, env)
	}
	type activeFlag struct {
		Active bool `json:"active"`
	}
	if decode[activeFlag](t, env.Data).Active {
		t.Fatalf("user still active: %s", env.Data)
	}

	status, env = s.do(http.MethodGet, "/api/users?role=agent", s.admin, nil)
	if status != http.StatusOK || env.Count == nil || *env.Count != 2 {
		t.Fatalf("list agents: %d %+v", status, env)
	}

	status, env = s.do(http.MethodPost, "/api/customers", s.agent, map[string]string{"name": "Acme Ops", "email": "ops@acme.test"})
	if status != http.StatusCreated {
		t.Fatalf("create customer: %d %+v", status, env)
	}
	status, env = s.do(http.MethodGet, "/api/customers?search=acme", s.agent, nil)
	if status != http.StatusOK || env.Count == nil || *env.Count != 1 {
		t.Fatalf("search customers: %d %+v", status, env)
	}
}

func TestReportEndpoints(t *testing.T) {
	s := newTestServer(t, nil)

	status, env := s.do(http.MethodGet, "/api/reports?year=2024&month=13", s.admin, nil)
	expectError(t, status, env, http.StatusBadRequest, "VALIDATION_FAILED")

	status, env = s.do(http.MethodGet, "/api/reports?year=2024&month=3", s.admin, nil)
	if status != http.StatusOK {
		t.Fatalf("report: %d %+v", status, env)
	}
	if got := decode[struct {
		Month int `json:"month"`
	}](t, env.Data); got.Month != 3 {
		t.Fatalf("unexpected month %d", got.Month)
	}

	resp := s.raw(http.MethodGet, "/api/reports/pdf?year=2024&month=3", s.admin, nil)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/pdf" {
		t.Fatalf("pdf: %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(body, []byte("%PDF-")) {
		t.Fatalf("body is not a pdf")
	}
	if !strings.Contains(resp.Header.Get("Content-Disposition"), "helpdesk-report-2024-03.pdf") {
		t.Fatalf("unexpected disposition %q", resp.Header.Get("Content-Disposition"))
	}
}

func TestMagicLinkEndpointsAreRateLimited(t *testing.T) {
	s := newTestServer(t, NewRateLimiter(0.001, 1))

	status, env := s.do(http.MethodPost, "/auth/magic-link", nil, map[string]string{"email": "new@example.com"})
	if status != http.StatusAccepted || !env.Success {
		t.Fatalf("first request: %d %+v", status, env)
	}
	status, env = s.do(http.MethodPost, "/auth/magic-link", nil, map[string]string{"email": "new@example.com"})
	expectError(t, status, env, http.StatusTooManyRequests, "RATE_LIMITED")
}

func TestRateLimiterSweepsIdleBuckets(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewRateLimiter(1, 1)
	l.now = func() time.Time { return now }

	if !l.Allow("10.0.0.1") || l.Allow("10.0.0.1") {
		t.Fatalf("expected a burst of one")
	}
	now = now.Add(10 * time.Minute)
	l.Sweep()
	if len(l.buckets) != 0 {
		t.Fatalf("expected idle bucket to be evicted, have %d", len(l.buckets))
	}
	if !l.Allow("10.0.0.1") {
		t.Fatalf("fresh bucket should allow")
	}
}
