package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// CustomerRepository manages customer profiles.
type CustomerRepository interface {
	Create(ctx context.Context, customer *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	GetByEmail(ctx context.Context, email string) (*domain.Customer, error)
	GetByUserID(ctx context.Context, userID string) (*domain.Customer, error)
	// FindOrCreate returns the customer with the given email, inserting
	// candidate when none exists. An existing row is returned unchanged.
	FindOrCreate(ctx context.Context, candidate *domain.Customer) (*domain.Customer, error)
	// LinkUser attaches userID to the customer with the given email, creating
	// the customer when missing. An existing link to another user is kept.
	LinkUser(ctx context.Context, userID, email, name string) (*domain.Customer, error)
	List(ctx context.Context, search string) ([]domain.CustomerListItem, error)
}

type customerRepository struct {
	db DBTX
}

// NewCustomerRepository builds the repository.
func NewCustomerRepository(db DBTX) CustomerRepository {
	return &customerRepository{db: db}
}

const customerColumns = `id, name, email, phone, company, user_id, created_at, updated_at`

func scanCustomer(row rowScanner, extra ...any) (*domain.Customer, error) {
	var customer domain.Customer
	dest := []any{
		&customer.ID,
		&customer.Name,
		&customer.Email,
		&customer.Phone,
		&customer.Company,
		&customer.UserID,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) Create(ctx context.Context, customer *domain.Customer) error {
	if customer.ID == "" {
		customer.ID = newID()
	}
	const query = `
        INSERT INTO customers (id, name, email, phone, company, user_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		customer.ID,
		customer.Name,
		customer.Email,
		customer.Phone,
		customer.Company,
		customer.UserID,
	).Scan(&customer.CreatedAt, &customer.UpdatedAt)
	return translateError(err)
}

func (r *customerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id))
}

func (r *customerRepository) GetByEmail(ctx context.Context, email string) (*domain.Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE email=$1`, email))
}

func (r *customerRepository) GetByUserID(ctx context.Context, userID string) (*domain.Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE user_id=$1`, userID))
}

func (r *customerRepository) FindOrCreate(ctx context.Context, candidate *domain.Customer) (*domain.Customer, error) {
	if candidate.ID == "" {
		candidate.ID = newID()
	}
	// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
	const query = `
        INSERT INTO customers (id, name, email, phone, company, user_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (email) DO UPDATE SET email = customers.email
        RETURNING ` + customerColumns
	return scanCustomer(r.db.QueryRow(ctx, query,
		candidate.ID,
		candidate.Name,
		candidate.Email,
		candidate.Phone,
		candidate.Company,
		candidate.UserID,
	))
}

func (r *customerRepository) LinkUser(ctx context.Context, userID, email, name string) (*domain.Customer, error) {
	const query = `
        INSERT INTO customers (id, name, email, user_id)
        VALUES ($1,$2,$3,$4)
        ON CONFLICT (email) DO UPDATE
            SET user_id = COALESCE(customers.user_id, EXCLUDED.user_id),
                updated_at = CASE WHEN customers.user_id IS NULL THEN NOW() ELSE customers.updated_at END
        RETURNING ` + customerColumns
	return scanCustomer(r.db.QueryRow(ctx, query, newID(), name, email, userID))
}

func (r *customerRepository) List(ctx context.Context, search string) ([]domain.CustomerListItem, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if term := strings.TrimSpace(search); term != "" {
		args = append(args, "%"+strings.ToLower(term)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(c.name) LIKE %s OR LOWER(c.email) LIKE %s OR LOWER(COALESCE(c.company, '')) LIKE %s)",
			placeholder, placeholder, placeholder))
	}

	query := fmt.Sprintf(`
        SELECT c.id, c.name, c.email, c.phone, c.company, c.user_id, c.created_at, c.updated_at,
               (SELECT COUNT(*) FROM tickets t WHERE t.customer_id = c.id)
        FROM customers c
        WHERE %s
        ORDER BY c.created_at DESC`, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CustomerListItem
	for rows.Next() {
		var count int
		customer, err := scanCustomer(rows, &count)
		if err != nil {
			return nil, err
		}
		result = append(result, domain.CustomerListItem{Customer: *customer, TicketCount: count})
	}
	return result, rows.Err()
}
