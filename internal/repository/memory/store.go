// Package memory implements the repository interfaces in process. It backs
// the service when no Postgres DSN is configured and the test suites.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
)

// Store holds every table behind one lock so conditional writes are atomic.
type Store struct {
	mu        sync.RWMutex
	now       func() time.Time
	seq       int
	users     map[string]*userRow
	customers map[string]*customerRow
	tickets   map[string]*ticketRow
	responses []*responseRow
}

type userRow struct {
	domain.User
}

type customerRow struct {
	domain.Customer
	seq int
}

type ticketRow struct {
	domain.Ticket
	seq int
}

type responseRow struct {
	domain.Response
	seq int
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		now:       time.Now,
		users:     make(map[string]*userRow),
		customers: make(map[string]*customerRow),
		tickets:   make(map[string]*ticketRow),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Users returns the user repository view.
func (s *Store) Users() repository.UserRepository { return &userStore{s} }

// Customers returns the customer repository view.
func (s *Store) Customers() repository.CustomerRepository { return &customerStore{s} }

// Tickets returns the ticket repository view.
func (s *Store) Tickets() repository.TicketRepository { return &ticketStore{s} }

// Responses returns the response repository view.
func (s *Store) Responses() repository.ResponseRepository { return &responseStore{s} }

// Reports returns the report repository view.
func (s *Store) Reports() repository.ReportRepository { return &reportStore{s} }

func (s *Store) nextSeq() int {
	s.seq++
	return s.seq
}

func (s *Store) stamp() time.Time {
	return s.now().UTC()
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}

func sortTicketRows(rows []*ticketRow) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTicket(t domain.Ticket) domain.Ticket {
	t.AssignedToID = cloneString(t.AssignedToID)
	t.AssignedAt = cloneTime(t.AssignedAt)
	t.ClosedAt = cloneTime(t.ClosedAt)
	return t
}

func copyUser(u domain.User) domain.User {
	u.PasswordHash = cloneString(u.PasswordHash)
	return u
}

func copyCustomer(c domain.Customer) domain.Customer {
	c.Phone = cloneString(c.Phone)
	c.Company = cloneString(c.Company)
	c.UserID = cloneString(c.UserID)
	return c
}
