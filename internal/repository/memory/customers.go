package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
)

type customerStore struct {
	s *Store
}

func (r *customerStore) Create(_ context.Context, customer *domain.Customer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.customerByEmailLocked(customer.Email) != nil {
		return repository.ErrDuplicate
	}
	r.s.insertCustomerLocked(customer)
	return nil
}

func (r *customerStore) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.customers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	customer := copyCustomer(row.Customer)
	return &customer, nil
}

func (r *customerStore) GetByEmail(_ context.Context, email string) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row := r.s.customerByEmailLocked(email)
	if row == nil {
		return nil, pgx.ErrNoRows
	}
	customer := copyCustomer(row.Customer)
	return &customer, nil
}

func (r *customerStore) GetByUserID(_ context.Context, userID string) (*domain.Customer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, row := range r.s.customers {
		if row.UserID != nil && *row.UserID == userID {
			customer := copyCustomer(row.Customer)
			return &customer, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *customerStore) FindOrCreate(_ context.Context, candidate *domain.Customer) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if row := r.s.customerByEmailLocked(candidate.Email); row != nil {
		customer := copyCustomer(row.Customer)
		return &customer, nil
	}
	created := copyCustomer(*candidate)
	r.s.insertCustomerLocked(&created)
	return &created, nil
}

func (r *customerStore) LinkUser(_ context.Context, userID, email, name string) (*domain.Customer, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if row := r.s.customerByEmailLocked(email); row != nil {
		if row.UserID == nil {
			id := userID
			row.UserID = &id
			row.UpdatedAt = r.s.stamp()
		}
		customer := copyCustomer(row.Customer)
		return &customer, nil
	}
	id := userID
	created := domain.Customer{Name: name, Email: email, UserID: &id}
	r.s.insertCustomerLocked(&created)
	return &created, nil
}

func (r *customerStore) List(_ context.Context, search string) ([]domain.CustomerListItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	term := strings.ToLower(strings.TrimSpace(search))
	rows := make([]*customerRow, 0, len(r.s.customers))
	for _, row := range r.s.customers {
		if term != "" && !customerMatches(row.Customer, term) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	result := make([]domain.CustomerListItem, 0, len(rows))
	for _, row := range rows {
		count := 0
		for _, t := range r.s.tickets {
			if t.CustomerID == row.ID {
				count++
			}
		}
		result = append(result, domain.CustomerListItem{Customer: copyCustomer(row.Customer), TicketCount: count})
	}
	return result, nil
}

func customerMatches(c domain.Customer, term string) bool {
	if strings.Contains(strings.ToLower(c.Name), term) || strings.Contains(strings.ToLower(c.Email), term) {
		return true
	}
	return c.Company != nil && strings.Contains(strings.ToLower(*c.Company), term)
}

func (s *Store) customerByEmailLocked(email string) *customerRow {
	for _, row := range s.customers {
		if row.Email == email {
			return row
		}
	}
	return nil
}

func (s *Store) insertCustomerLocked(customer *domain.Customer) {
	ensureID(&customer.ID)
	now := s.stamp()
	customer.CreatedAt, customer.UpdatedAt = now, now
	s.customers[customer.ID] = &customerRow{Customer: copyCustomer(*customer), seq: s.nextSeq()}
}
