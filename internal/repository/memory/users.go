package memory

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
)

type userStore struct {
	s *Store
}

func (r *userStore) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.userByEmailLocked(user.Email) != nil {
		return repository.ErrDuplicate
	}
	ensureID(&user.ID)
	if _, exists := r.s.users[user.ID]; exists {
		return repository.ErrDuplicate
	}
	now := r.s.stamp()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = &userRow{User: copyUser(*user)}
	return nil
}

func (r *userStore) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.users[user.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if other := r.s.userByEmailLocked(user.Email); other != nil && other.ID != user.ID {
		return repository.ErrDuplicate
	}
	if user.Role == domain.RoleCustomer {
		for _, t := range r.s.tickets {
			if t.AssignedTo(user.ID) {
				return repository.ErrUserHasAssignments
			}
		}
	}
	user.CreatedAt = row.CreatedAt
	user.UpdatedAt = r.s.stamp()
	row.User = copyUser(*user)
	return nil
}

func (r *userStore) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	user := copyUser(row.User)
	return &user, nil
}

func (r *userStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row := r.s.userByEmailLocked(email)
	if row == nil {
		return nil, pgx.ErrNoRows
	}
	user := copyUser(row.User)
	return &user, nil
}

func (r *userStore) List(_ context.Context, filter repository.UserFilter) ([]domain.UserListItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.UserListItem
	for _, row := range r.s.users {
		if filter.Role != nil && row.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && row.Active != *filter.Active {
			continue
		}
		count := 0
		for _, t := range r.s.tickets {
			if t.AssignedTo(row.ID) {
				count++
			}
		}
		result = append(result, domain.UserListItem{User: copyUser(row.User), AssignedTickets: count})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].User.Name < result[j].User.Name
	})
	return result, nil
}

func (r *userStore) Stats(_ context.Context, userID string) (*domain.UserStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := &domain.UserStats{
		TicketsByStatus:   map[domain.TicketStatus]int{},
		TicketsByPriority: map[domain.TicketPriority]int{},
	}

	var assigned []*ticketRow
	for _, t := range r.s.tickets {
		if t.AssignedTo(userID) {
			assigned = append(assigned, t)
			stats.TicketsByStatus[t.Status]++
			stats.TicketsByPriority[t.Priority]++
		}
	}
	stats.TotalAssigned = len(assigned)

	var totalHours float64
	responded := 0
	for _, t := range assigned {
		if first := r.s.firstResponseLocked(t.ID); first != nil {
			totalHours += first.CreatedAt.Sub(t.CreatedAt).Hours()
			responded++
		}
	}
	if responded > 0 {
		stats.AvgFirstResponseHours = totalHours / float64(responded)
	}

	for _, resp := range r.s.responses {
		if resp.UserID == userID {
			stats.TotalResponses++
		}
	}

	sortTicketRows(assigned)
	for i, t := range assigned {
		if i == 10 {
			break
		}
		stats.RecentTickets = append(stats.RecentTickets, copyTicket(t.Ticket))
	}

	stats.ResolutionRatePercentage = repository.ResolutionRate(stats.TicketsByStatus, stats.TotalAssigned)
	return stats, nil
}

func (s *Store) userByEmailLocked(email string) *userRow {
	for _, row := range s.users {
		if row.Email == email {
			return row
		}
	}
	return nil
}

func (s *Store) firstResponseLocked(ticketID string) *responseRow {
	var first *responseRow
	for _, resp := range s.responses {
		if resp.TicketID != ticketID {
			continue
		}
		if first == nil || resp.CreatedAt.Before(first.CreatedAt) {
			first = resp
		}
	}
	return first
}
