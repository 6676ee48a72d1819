package repository

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/policy"
)

// TicketFilter captures listing parameters. Scope is always applied.
type TicketFilter struct {
	Scope        policy.TicketScope
	Status       *domain.TicketStatus
	Priority     *domain.TicketPriority
	Category     *domain.TicketCategory
	AssignedToID *string
	Unassigned   bool
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.TicketListItem, error)
	// UpdateIfUnchanged persists plan.Ticket only while the row still has the
	// status and assignee the plan was computed from. ErrStaleTicket otherwise.
	UpdateIfUnchanged(ctx context.Context, plan policy.UpdatePlan) (*domain.Ticket, error)
	// AdvanceStatus moves the ticket from one status to another if it is
	// still in the first. It reports whether the row changed.
	AdvanceStatus(ctx context.Context, id string, from, to domain.TicketStatus) (bool, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

const ticketColumns = `t.id, t.title, t.description, t.category, t.priority, t.status, t.source,
               t.customer_id, t.assigned_to_id, t.assigned_at, t.closed_at, t.created_at, t.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, extra ...any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	dest := []any{
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Category,
		&ticket.Priority,
		&ticket.Status,
		&ticket.Source,
		&ticket.CustomerID,
		&ticket.AssignedToID,
		&ticket.AssignedAt,
		&ticket.ClosedAt,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = newID()
	}
	const query = `
        INSERT INTO tickets (id, title, description, category, priority, status, source,
                             customer_id, assigned_to_id, assigned_at, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING created_at, updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Description,
		ticket.Category,
		ticket.Priority,
		ticket.Status,
		ticket.Source,
		ticket.CustomerID,
		ticket.AssignedToID,
		ticket.AssignedAt,
		ticket.ClosedAt,
	).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
	return translateError(err)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=$1`
	return scanTicket(r.db.QueryRow(ctx, query, id))
}

func (r *ticketRepository) UpdateIfUnchanged(ctx context.Context, plan policy.UpdatePlan) (*domain.Ticket, error) {
	const query = `
        UPDATE tickets t SET title=$1, description=$2, category=$3, priority=$4, status=$5,
            assigned_to_id=$6, assigned_at=$7, closed_at=$8, updated_at=NOW()
        WHERE t.id=$9 AND t.status=$10 AND t.assigned_to_id IS NOT DISTINCT FROM $11
        RETURNING ` + ticketColumns
	next := plan.Ticket
	updated, err := scanTicket(r.db.QueryRow(ctx, query,
		next.Title,
		next.Description,
		next.Category,
		next.Priority,
		next.Status,
		next.AssignedToID,
		next.AssignedAt,
		next.ClosedAt,
		next.ID,
		plan.ExpectedStatus,
		plan.ExpectedAssignee,
	))
	if err != nil {
		if IsNotFound(err) {
			return nil, ErrStaleTicket
		}
		return nil, err
	}
	return updated, nil
}

func (r *ticketRepository) AdvanceStatus(ctx context.Context, id string, from, to domain.TicketStatus) (bool, error) {
	if !validID(id) {
		return false, nil
	}
	const query = `UPDATE tickets SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	cmd, err := r.db.Exec(ctx, query, to, id, from)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return pgx.ErrNoRows
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.TicketListItem, error) {
	if !filter.Unassigned && filter.AssignedToID != nil && !validID(*filter.AssignedToID) {
		return nil, nil
	}
	where, args := buildTicketWhere(filter)
	query := fmt.Sprintf(`
        SELECT %s, c.name, c.email, u.name,
               (SELECT COUNT(*) FROM responses r WHERE r.ticket_id = t.id)
        FROM tickets t
        JOIN customers c ON c.id = t.customer_id
        LEFT JOIN users u ON u.id = t.assigned_to_id
        WHERE %s
        ORDER BY t.created_at DESC`, ticketColumns, where)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketListItem
	for rows.Next() {
		var item domain.TicketListItem
		ticket, err := scanTicket(rows, &item.CustomerName, &item.CustomerEmail, &item.AssigneeName, &item.ResponseCount)
		if err != nil {
			return nil, err
		}
		item.Ticket = *ticket
		result = append(result, item)
	}
	return result, rows.Err()
}

// buildTicketWhere renders the scope and filters as a parameterized clause.
func buildTicketWhere(filter TicketFilter) (string, []any) {
	args := []any{}
	clauses := []string{scopeClause(filter.Scope, &args)}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		clauses = append(clauses, fmt.Sprintf("t.status=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("t.priority=$%d", len(args)))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("t.category=$%d", len(args)))
	}
	if filter.Unassigned {
		clauses = append(clauses, "t.assigned_to_id IS NULL")
	} else if filter.AssignedToID != nil {
		args = append(args, *filter.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("t.assigned_to_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("t.created_at <= $%d", len(args)))
	}
	return strings.Join(clauses, " AND "), args
}

// scopeClause renders the visibility predicate. An empty scope matches nothing.
func scopeClause(scope policy.TicketScope, args *[]any) string {
	switch scope.Kind {
	case policy.ScopeAll:
		return "1=1"
	case policy.ScopeAgent:
		if scope.UserID == "" {
			return "1=0"
		}
		*args = append(*args, scope.UserID, domain.TicketStatusOpen)
		return fmt.Sprintf("(t.assigned_to_id=$%d OR (t.status=$%d AND t.assigned_to_id IS NULL))", len(*args)-1, len(*args))
	case policy.ScopeCustomer:
		if scope.CustomerID == "" {
			return "1=0"
		}
		*args = append(*args, scope.CustomerID)
		return fmt.Sprintf("t.customer_id=$%d", len(*args))
	default:
		return "1=0"
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
