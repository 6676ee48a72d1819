package repository

import (
	"context"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// ResponseRepository manages ticket thread responses.
type ResponseRepository interface {
	// CreateIfTicketOpen inserts the response only while its ticket is
	// neither RESOLVED nor CLOSED. ErrTicketClosed otherwise.
	CreateIfTicketOpen(ctx context.Context, response *domain.Response) error
	ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.ResponseView, error)
}

type responseRepository struct {
	db DBTX
}

// NewResponseRepository builds repository.
func NewResponseRepository(db DBTX) ResponseRepository {
	return &responseRepository{db: db}
}

func (r *responseRepository) CreateIfTicketOpen(ctx context.Context, response *domain.Response) error {
	if response.ID == "" {
		response.ID = newID()
	}
	const query = `
        INSERT INTO responses (id, ticket_id, user_id, message, is_internal)
        SELECT $1::uuid, t.id, $3::uuid, $4::text, $5::boolean
        FROM tickets t
        WHERE t.id = $2 AND t.status NOT IN ('RESOLVED', 'CLOSED')
        RETURNING created_at`
	err := r.db.QueryRow(ctx, query,
		response.ID,
		response.TicketID,
		response.UserID,
		response.Message,
		response.IsInternal,
	).Scan(&response.CreatedAt)
	if err != nil {
		if IsNotFound(err) {
			return ErrTicketClosed
		}
		return translateError(err)
	}
	return nil
}

func (r *responseRepository) ListByTicket(ctx context.Context, ticketID string, includeInternal bool) ([]domain.ResponseView, error) {
	if !validID(ticketID) {
		return nil, nil
	}
	const query = `
        SELECT r.id, r.ticket_id, r.user_id, r.message, r.is_internal, r.created_at, u.name, u.role
        FROM responses r
        JOIN users u ON u.id = r.user_id
        WHERE r.ticket_id=$1 AND ($2 OR NOT r.is_internal)
        ORDER BY r.created_at ASC`
	rows, err := r.db.Query(ctx, query, ticketID, includeInternal)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ResponseView
	for rows.Next() {
		var view domain.ResponseView
		if err := rows.Scan(
			&view.ID,
			&view.TicketID,
			&view.UserID,
			&view.Message,
			&view.IsInternal,
			&view.CreatedAt,
			&view.AuthorName,
			&view.AuthorRole,
		); err != nil {
			return nil, err
		}
		result = append(result, view)
	}
	return result, rows.Err()
}
