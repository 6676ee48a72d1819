package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
)

const ticketID = "5f0c8a52-2b1e-4f7a-9a51-0e4f3c1d2b6a"

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	t.Cleanup(mock.Close)
	return mock
}

func TestScopeClause(t *testing.T) {
	cases := []struct {
		name  string
		scope policy.TicketScope
		want  string
		args  int
	}{
		{"all", policy.TicketScope{Kind: policy.ScopeAll}, "1=1", 0},
		{"agent", policy.TicketScope{Kind: policy.ScopeAgent, UserID: "a1"}, "(t.assigned_to_id=$1 OR (t.status=$2 AND t.assigned_to_id IS NULL))", 2},
		{"agent without id", policy.TicketScope{Kind: policy.ScopeAgent}, "1=0", 0},
		{"customer", policy.TicketScope{Kind: policy.ScopeCustomer, CustomerID: "k1"}, "t.customer_id=$1", 1},
		{"none", policy.TicketScope{}, "1=0", 0},
	}
	for _, tc := range cases {
		var args []any
		if got := scopeClause(tc.scope, &args); got != tc.want || len(args) != tc.args {
			t.Fatalf("%s: scopeClause=%q (%d args), want %q (%d args)", tc.name, got, len(args), tc.want, tc.args)
		}
	}
}

func TestBuildTicketWhereNumbersPlaceholders(t *testing.T) {
	status := domain.TicketStatusOpen
	where, args := buildTicketWhere(TicketFilter{
		Scope:      policy.TicketScope{Kind: policy.ScopeAgent, UserID: "a1"},
		Status:     &status,
		Unassigned: true,
	})
	if !strings.Contains(where, "t.status=$3") {
		t.Fatalf("expected status placeholder after scope args, got %q", where)
	}
	if !strings.Contains(where, "t.assigned_to_id IS NULL") {
		t.Fatalf("expected unassigned clause, got %q", where)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(args))
	}
}

func TestUpdateIfUnchangedReportsStaleTicket(t *testing.T) {
	mock := newMock(t)
	repo := NewTicketRepository(mock)

	self := "a1"
	plan := policy.UpdatePlan{
		Ticket:         domain.Ticket{ID: "t1", Status: domain.TicketStatusInProgress, AssignedToID: &self},
		ExpectedStatus: domain.TicketStatusOpen,
	}
	mock.ExpectQuery(`(?s)UPDATE tickets t SET .* WHERE t.id=\$9 AND t.status=\$10 AND t.assigned_to_id IS NOT DISTINCT FROM \$11`).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.UpdateIfUnchanged(context.Background(), plan); !errors.Is(err, ErrStaleTicket) {
		t.Fatalf("expected ErrStaleTicket, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUserCreateMapsUniqueViolation(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := repo.Create(context.Background(), &domain.User{ID: "u1", Email: "dup@example.com", Role: domain.RoleAgent})
	if !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateResponseOnClosedTicket(t *testing.T) {
	mock := newMock(t)
	repo := NewResponseRepository(mock)

	mock.ExpectQuery(`(?s)INSERT INTO responses .* WHERE t.id = \$2 AND t.status NOT IN \('RESOLVED', 'CLOSED'\)`).
		WillReturnError(pgx.ErrNoRows)

	err := repo.CreateIfTicketOpen(context.Background(), &domain.Response{ID: "r1", TicketID: "t1", UserID: "u1", Message: "hi"})
	if !errors.Is(err, ErrTicketClosed) {
		t.Fatalf("expected ErrTicketClosed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestAdvanceStatusIsConditional(t *testing.T) {
	mock := newMock(t)
	repo := NewTicketRepository(mock)

	mock.ExpectExec(`UPDATE tickets SET status=\$1, updated_at=NOW\(\) WHERE id=\$2 AND status=\$3`).
		WithArgs(domain.TicketStatusInProgress, ticketID, domain.TicketStatusOpen).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	changed, err := repo.AdvanceStatus(context.Background(), ticketID, domain.TicketStatusOpen, domain.TicketStatusInProgress)
	if err != nil {
		t.Fatalf("AdvanceStatus: %v", err)
	}
	if changed {
		t.Fatalf("expected no change when the ticket already moved on")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestDeleteMissingTicket(t *testing.T) {
	mock := newMock(t)
	repo := NewTicketRepository(mock)

	mock.ExpectExec(`DELETE FROM tickets WHERE id=\$1`).
		WithArgs(ticketID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	if err := repo.Delete(context.Background(), ticketID); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResolutionRate(t *testing.T) {
	byStatus := map[domain.TicketStatus]int{
		domain.TicketStatusResolved: 1,
		domain.TicketStatusClosed:   1,
		domain.TicketStatusOpen:     1,
	}
	if got := ResolutionRate(byStatus, 3); got != 66.7 {
		t.Fatalf("ResolutionRate=%v, want 66.7", got)
	}
	if got := ResolutionRate(nil, 0); got != 0 {
		t.Fatalf("ResolutionRate on empty=%v, want 0", got)
	}
}

func TestTicketCreateAssignsID(t *testing.T) {
	mock := newMock(t)
	repo := NewTicketRepository(mock)
	now := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)

	args := make([]any, 11)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	mock.ExpectQuery(`INSERT INTO tickets`).
		WithArgs(args...).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	ticket := &domain.Ticket{Title: "t", Description: "d", Status: domain.TicketStatusOpen, CustomerID: "k1"}
	if err := repo.Create(context.Background(), ticket); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if ticket.ID == "" || !ticket.CreatedAt.Equal(now) {
		t.Fatalf("expected id and timestamps, got %+v", ticket)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

type uuidArg struct{}

func (uuidArg) Match(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

func TestFindOrCreateAssignsID(t *testing.T) {
	mock := newMock(t)
	repo := NewCustomerRepository(mock)
	errDone := errors.New("done")

	mock.ExpectQuery(`(?s)INSERT INTO customers .* ON CONFLICT \(email\)`).
		WithArgs(uuidArg{}, "Nora", "nora@example.com", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errDone)

	candidate := &domain.Customer{Name: "Nora", Email: "nora@example.com"}
	if _, err := repo.FindOrCreate(context.Background(), candidate); !errors.Is(err, errDone) {
		t.Fatalf("expected insert with a generated id, got %v", err)
	}
	if _, err := uuid.Parse(candidate.ID); err != nil {
		t.Fatalf("expected candidate to carry a uuid, got %q", candidate.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMalformedIDsMatchNothing(t *testing.T) {
	mock := newMock(t)
	ctx := context.Background()
	tickets := NewTicketRepository(mock)
	users := NewUserRepository(mock)
	customers := NewCustomerRepository(mock)
	responses := NewResponseRepository(mock)

	if _, err := tickets.GetByID(ctx, "abc"); !IsNotFound(err) {
		t.Fatalf("ticket GetByID: expected not found, got %v", err)
	}
	if err := tickets.Delete(ctx, "abc"); !IsNotFound(err) {
		t.Fatalf("ticket Delete: expected not found, got %v", err)
	}
	if changed, err := tickets.AdvanceStatus(ctx, "abc", domain.TicketStatusOpen, domain.TicketStatusInProgress); err != nil || changed {
		t.Fatalf("AdvanceStatus: expected no change, got %v %v", changed, err)
	}
	if _, err := users.GetByID(ctx, "agent42"); !IsNotFound(err) {
		t.Fatalf("user GetByID: expected not found, got %v", err)
	}
	if _, err := customers.GetByID(ctx, "k1"); !IsNotFound(err) {
		t.Fatalf("customer GetByID: expected not found, got %v", err)
	}

	foo := "foo"
	items, err := tickets.List(ctx, TicketFilter{Scope: policy.TicketScope{Kind: policy.ScopeAll}, AssignedToID: &foo})
	if err != nil || len(items) != 0 {
		t.Fatalf("List: expected empty result, got %d items, err %v", len(items), err)
	}
	views, err := responses.ListByTicket(ctx, "abc", true)
	if err != nil || len(views) != 0 {
		t.Fatalf("ListByTicket: expected empty result, got %d, err %v", len(views), err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query should reach the database: %v", err)
	}
}

func TestUserDemotionBlockedByAssignments(t *testing.T) {
	mock := newMock(t)
	repo := NewUserRepository(mock)
	userID := "0b7e3c2a-8d44-4e55-b1a3-6f0e2c9d7a10"

	mock.ExpectQuery(`(?s)UPDATE users SET .* NOT EXISTS \(SELECT 1 FROM tickets t WHERE t.assigned_to_id = users.id\)`).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM users WHERE id=\$1\)`).
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	user := &domain.User{ID: userID, Email: "a@example.com", Name: "A", Role: domain.RoleCustomer, Active: true}
	if err := repo.Update(context.Background(), user); !errors.Is(err, ErrUserHasAssignments) {
		t.Fatalf("expected ErrUserHasAssignments, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
