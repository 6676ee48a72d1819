package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/repository"
)

func seedTicket(t *testing.T, s *Store) domain.Ticket {
	t.Helper()
	ctx := context.Background()
	customer := &domain.Customer{Name: "Ada", Email: "ada@example.com"}
	if err := s.Customers().Create(ctx, customer); err != nil {
		t.Fatalf("create customer: %v", err)
	}
	ticket := &domain.Ticket{
		Title:      "Printer on fire",
		Category:   domain.TicketCategoryTechnical,
		Priority:   domain.TicketPriorityHigh,
		Status:     domain.TicketStatusOpen,
		Source:     domain.TicketSourceWebForm,
		CustomerID: customer.ID,
	}
	if err := s.Tickets().Create(ctx, ticket); err != nil {
		t.Fatalf("create ticket: %v", err)
	}
	return *ticket
}

func TestConcurrentConditionalUpdatesLandOnce(t *testing.T) {
	s := NewStore()
	ticket := seedTicket(t, s)

	const workers = 16
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  []string
		conflict int
	)
	for i := 0; i < workers; i++ {
		agentID := "agent-" + string(rune('a'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			next := ticket
			next.AssignedToID = &agentID
			now := time.Now()
			next.AssignedAt = &now
			next.Status = domain.TicketStatusInProgress
			_, err := s.Tickets().UpdateIfUnchanged(context.Background(), policy.UpdatePlan{
				Ticket:         next,
				ExpectedStatus: domain.TicketStatusOpen,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners = append(winners, agentID)
			case errors.Is(err, repository.ErrStaleTicket):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if len(winners) != 1 || conflict != workers-1 {
		t.Fatalf("expected one winner and %d conflicts, got %v and %d", workers-1, winners, conflict)
	}
	stored, err := s.Tickets().GetByID(context.Background(), ticket.ID)
	if err != nil {
		t.Fatalf("get ticket: %v", err)
	}
	if !stored.AssignedTo(winners[0]) {
		t.Fatalf("stored assignee %v, want %s", stored.AssignedToID, winners[0])
	}
}

func TestLinkUserIsIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := s.Customers().LinkUser(ctx, "user-1", "bob@example.com", "Bob")
			if err != nil {
				t.Errorf("LinkUser: %v", err)
				return
			}
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("LinkUser created more than one customer: %v", ids)
		}
	}
	list, _ := s.Customers().List(ctx, "")
	if len(list) != 1 {
		t.Fatalf("expected one customer, got %d", len(list))
	}
}

func TestLinkUserAdoptsExistingCustomer(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	existing := &domain.Customer{Name: "Pre Existing", Email: "pre@example.com"}
	if err := s.Customers().Create(ctx, existing); err != nil {
		t.Fatalf("create: %v", err)
	}

	linked, err := s.Customers().LinkUser(ctx, "user-9", "pre@example.com", "ignored")
	if err != nil {
		t.Fatalf("LinkUser: %v", err)
	}
	if linked.ID != existing.ID || linked.UserID == nil || *linked.UserID != "user-9" {
		t.Fatalf("expected existing customer linked to user-9, got %+v", linked)
	}
	if linked.Name != "Pre Existing" {
		t.Fatalf("existing name overwritten: %s", linked.Name)
	}
}

func TestResponsesRejectedOnTerminalTicket(t *testing.T) {
	s := NewStore()
	ticket := seedTicket(t, s)
	ctx := context.Background()

	closed := ticket
	closed.Status = domain.TicketStatusClosed
	now := time.Now()
	closed.ClosedAt = &now
	if _, err := s.Tickets().UpdateIfUnchanged(ctx, policy.UpdatePlan{Ticket: closed, ExpectedStatus: domain.TicketStatusOpen}); err != nil {
		t.Fatalf("close ticket: %v", err)
	}

	err := s.Responses().CreateIfTicketOpen(ctx, &domain.Response{TicketID: ticket.ID, UserID: "u1", Message: "late"})
	if !errors.Is(err, repository.ErrTicketClosed) {
		t.Fatalf("expected ErrTicketClosed, got %v", err)
	}
	list, _ := s.Responses().ListByTicket(ctx, ticket.ID, true)
	if len(list) != 0 {
		t.Fatalf("expected no persisted responses, got %d", len(list))
	}
}

func TestListAppliesScope(t *testing.T) {
	s := NewStore()
	ticket := seedTicket(t, s)
	ctx := context.Background()

	other := "agent-2"
	claimed := ticket
	claimed.AssignedToID = &other
	now := time.Now()
	claimed.AssignedAt = &now
	if _, err := s.Tickets().UpdateIfUnchanged(ctx, policy.UpdatePlan{Ticket: claimed, ExpectedStatus: domain.TicketStatusOpen}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	items, err := s.Tickets().List(ctx, repository.TicketFilter{Scope: policy.TicketScope{Kind: policy.ScopeAgent, UserID: "agent-1"}})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("agent-1 sees ticket claimed by a peer")
	}
	items, _ = s.Tickets().List(ctx, repository.TicketFilter{})
	if len(items) != 0 {
		t.Fatalf("empty scope must list nothing, got %d", len(items))
	}
}

func TestDeleteCascadesResponses(t *testing.T) {
	s := NewStore()
	ticket := seedTicket(t, s)
	ctx := context.Background()

	if err := s.Responses().CreateIfTicketOpen(ctx, &domain.Response{TicketID: ticket.ID, UserID: "u1", Message: "hello"}); err != nil {
		t.Fatalf("create response: %v", err)
	}
	if err := s.Tickets().Delete(ctx, ticket.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ := s.Responses().ListByTicket(ctx, ticket.ID, true)
	if len(list) != 0 {
		t.Fatalf("responses survived ticket deletion")
	}
	if err := s.Tickets().Delete(ctx, ticket.ID); !repository.IsNotFound(err) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
