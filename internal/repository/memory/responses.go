package memory

import (
	"context"
	"sort"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
)

type responseStore struct {
	s *Store
}

func (r *responseStore) CreateIfTicketOpen(_ context.Context, response *domain.Response) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ticket, ok := r.s.tickets[response.TicketID]
	if !ok || ticket.Status.Terminal() {
		return repository.ErrTicketClosed
	}
	ensureID(&response.ID)
	response.CreatedAt = r.s.stamp()
	r.s.responses = append(r.s.responses, &responseRow{Response: *response, seq: r.s.nextSeq()})
	return nil
}

func (r *responseStore) ListByTicket(_ context.Context, ticketID string, includeInternal bool) ([]domain.ResponseView, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var rows []*responseRow
	for _, resp := range r.s.responses {
		if resp.TicketID != ticketID {
			continue
		}
		if resp.IsInternal && !includeInternal {
			continue
		}
		rows = append(rows, resp)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].seq < rows[j].seq
	})

	result := make([]domain.ResponseView, 0, len(rows))
	for _, resp := range rows {
		view := domain.ResponseView{Response: resp.Response}
		if author, ok := r.s.users[resp.UserID]; ok {
			view.AuthorName = author.Name
			view.AuthorRole = author.Role
		}
		result = append(result, view)
	}
	return result, nil
}
