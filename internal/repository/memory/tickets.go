package memory

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
	"github.com/deskline/helpdesk-service/internal/repository"
)

type ticketStore struct {
	s *Store
}

func (r *ticketStore) Create(_ context.Context, ticket *domain.Ticket) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.customers[ticket.CustomerID]; !ok {
		return pgx.ErrNoRows
	}
	ensureID(&ticket.ID)
	if _, exists := r.s.tickets[ticket.ID]; exists {
		return repository.ErrDuplicate
	}
	now := r.s.stamp()
	ticket.CreatedAt, ticket.UpdatedAt = now, now
	r.s.tickets[ticket.ID] = &ticketRow{Ticket: copyTicket(*ticket), seq: r.s.nextSeq()}
	return nil
}

func (r *ticketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	ticket := copyTicket(row.Ticket)
	return &ticket, nil
}

func (r *ticketStore) List(_ context.Context, filter repository.TicketFilter) ([]domain.TicketListItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var rows []*ticketRow
	for _, row := range r.s.tickets {
		if matchesFilter(&row.Ticket, filter) {
			rows = append(rows, row)
		}
	}
	sortTicketRows(rows)

	result := make([]domain.TicketListItem, 0, len(rows))
	for _, row := range rows {
		item := domain.TicketListItem{Ticket: copyTicket(row.Ticket)}
		if c, ok := r.s.customers[row.CustomerID]; ok {
			item.CustomerName = c.Name
			item.CustomerEmail = c.Email
		}
		if row.AssignedToID != nil {
			if u, ok := r.s.users[*row.AssignedToID]; ok {
				name := u.Name
				item.AssigneeName = &name
			}
		}
		for _, resp := range r.s.responses {
			if resp.TicketID == row.ID {
				item.ResponseCount++
			}
		}
		result = append(result, item)
	}
	return result, nil
}

func matchesFilter(t *domain.Ticket, filter repository.TicketFilter) bool {
	if !filter.Scope.Matches(t) {
		return false
	}
	if filter.Status != nil && t.Status != *filter.Status {
		return false
	}
	if filter.Priority != nil && t.Priority != *filter.Priority {
		return false
	}
	if filter.Category != nil && t.Category != *filter.Category {
		return false
	}
	if filter.Unassigned {
		if t.AssignedToID != nil {
			return false
		}
	} else if filter.AssignedToID != nil && !t.AssignedTo(*filter.AssignedToID) {
		return false
	}
	if filter.CreatedFrom != nil && t.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && t.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	return true
}

func (r *ticketStore) UpdateIfUnchanged(_ context.Context, plan policy.UpdatePlan) (*domain.Ticket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.tickets[plan.Ticket.ID]
	if !ok || row.Status != plan.ExpectedStatus || !sameID(row.AssignedToID, plan.ExpectedAssignee) {
		return nil, repository.ErrStaleTicket
	}

	next := copyTicket(plan.Ticket)
	row.Title = next.Title
	row.Description = next.Description
	row.Category = next.Category
	row.Priority = next.Priority
	row.Status = next.Status
	row.AssignedToID = next.AssignedToID
	row.AssignedAt = next.AssignedAt
	row.ClosedAt = next.ClosedAt
	row.UpdatedAt = r.s.stamp()

	updated := copyTicket(row.Ticket)
	return &updated, nil
}

func (r *ticketStore) AdvanceStatus(_ context.Context, id string, from, to domain.TicketStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.tickets[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	row.UpdatedAt = r.s.stamp()
	return true, nil
}

func (r *ticketStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.tickets, id)

	kept := r.s.responses[:0]
	for _, resp := range r.s.responses {
		if resp.TicketID != id {
			kept = append(kept, resp)
		}
	}
	r.s.responses = kept
	return nil
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
