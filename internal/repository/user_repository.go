package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// UserFilter narrows user listings.
type UserFilter struct {
	Role   *domain.Role
	Active *bool
}

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.UserListItem, error)
	Stats(ctx context.Context, userID string) (*domain.UserStats, error)
}

type userRepository struct {
	db DBTX
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, name, role, active, password_hash, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = newID()
	}
	const query = `
        INSERT INTO users (id, email, name, role, active, password_hash)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.Role,
		user.Active,
		user.PasswordHash,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	return translateError(err)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	// A CUSTOMER cannot be an assignee, so the demotion only lands while no
	// ticket points at the user.
	const query = `
        UPDATE users SET email=$1, name=$2, role=$3, active=$4, password_hash=$5, updated_at=NOW()
        WHERE id=$6
          AND ($3 <> 'CUSTOMER' OR NOT EXISTS (SELECT 1 FROM tickets t WHERE t.assigned_to_id = users.id))
        RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		user.Email,
		user.Name,
		user.Role,
		user.Active,
		user.PasswordHash,
		user.ID,
	).Scan(&user.UpdatedAt)
	if IsNotFound(err) && user.Role == domain.RoleCustomer {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id=$1)`, user.ID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return ErrUserHasAssignments
		}
	}
	return translateError(err)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Active,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.UserListItem, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("u.role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("u.active=$%d", len(args)))
	}

	query := fmt.Sprintf(`
        SELECT u.id, u.email, u.name, u.role, u.active, u.password_hash, u.created_at, u.updated_at,
               (SELECT COUNT(*) FROM tickets t WHERE t.assigned_to_id = u.id)
        FROM users u
        WHERE %s
        ORDER BY u.name ASC`, strings.Join(clauses, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UserListItem
	for rows.Next() {
		var item domain.UserListItem
		if err := rows.Scan(
			&item.User.ID,
			&item.User.Email,
			&item.User.Name,
			&item.User.Role,
			&item.User.Active,
			&item.User.PasswordHash,
			&item.User.CreatedAt,
			&item.User.UpdatedAt,
			&item.AssignedTickets,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *userRepository) Stats(ctx context.Context, userID string) (*domain.UserStats, error) {
	stats := &domain.UserStats{
		TicketsByStatus:   map[domain.TicketStatus]int{},
		TicketsByPriority: map[domain.TicketPriority]int{},
	}

	const groupQuery = `
        SELECT status, priority, COUNT(*)
        FROM tickets WHERE assigned_to_id=$1
        GROUP BY status, priority`
	rows, err := r.db.Query(ctx, groupQuery, userID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			status   domain.TicketStatus
			priority domain.TicketPriority
			count    int
		)
		if err := rows.Scan(&status, &priority, &count); err != nil {
			rows.Close()
			return nil, err
		}
		stats.TicketsByStatus[status] += count
		stats.TicketsByPriority[priority] += count
		stats.TotalAssigned += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const responseQuery = `SELECT COUNT(*) FROM responses WHERE user_id=$1`
	if err := r.db.QueryRow(ctx, responseQuery, userID).Scan(&stats.TotalResponses); err != nil {
		return nil, err
	}

	const firstResponseQuery = `
        SELECT COALESCE(AVG(EXTRACT(EPOCH FROM (fr.first_at - t.created_at)) / 3600.0), 0)::float8
        FROM tickets t
        JOIN LATERAL (
            SELECT MIN(r.created_at) AS first_at FROM responses r WHERE r.ticket_id = t.id
        ) fr ON fr.first_at IS NOT NULL
        WHERE t.assigned_to_id=$1`
	if err := r.db.QueryRow(ctx, firstResponseQuery, userID).Scan(&stats.AvgFirstResponseHours); err != nil {
		return nil, err
	}

	const recentQuery = `SELECT ` + ticketColumns + ` FROM tickets t
        WHERE t.assigned_to_id=$1 ORDER BY t.created_at DESC LIMIT 10`
	recent, err := r.db.Query(ctx, recentQuery, userID)
	if err != nil {
		return nil, err
	}
	defer recent.Close()
	for recent.Next() {
		ticket, err := scanTicket(recent)
		if err != nil {
			return nil, err
		}
		stats.RecentTickets = append(stats.RecentTickets, *ticket)
	}
	if err := recent.Err(); err != nil {
		return nil, err
	}

	stats.ResolutionRatePercentage = ResolutionRate(stats.TicketsByStatus, stats.TotalAssigned)
	return stats, nil
}

// ResolutionRate returns the share of resolved or closed tickets as a
// percentage rounded to one decimal.
func ResolutionRate(byStatus map[domain.TicketStatus]int, total int) float64 {
	if total == 0 {
		return 0
	}
	done := byStatus[domain.TicketStatusResolved] + byStatus[domain.TicketStatusClosed]
	return round(float64(done)*100/float64(total), 1)
}
