package repository

import (
	"context"
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// ReportRepository computes aggregate ticket statistics.
type ReportRepository interface {
	// Monthly aggregates tickets created in [from, to).
	Monthly(ctx context.Context, from, to time.Time) (*domain.MonthlyReport, error)
}

type reportRepository struct {
	db DBTX
}

// NewReportRepository builds repository.
func NewReportRepository(db DBTX) ReportRepository {
	return &reportRepository{db: db}
}

func (r *reportRepository) Monthly(ctx context.Context, from, to time.Time) (*domain.MonthlyReport, error) {
	report := &domain.MonthlyReport{
		From:       from,
		To:         to,
		ByStatus:   map[domain.TicketStatus]int{},
		ByPriority: map[domain.TicketPriority]int{},
		ByCategory: map[domain.TicketCategory]int{},
	}

	const groupQuery = `
        SELECT status, priority, category, COUNT(*)
        FROM tickets
        WHERE created_at >= $1 AND created_at < $2
        GROUP BY status, priority, category`
	rows, err := r.db.Query(ctx, groupQuery, from, to)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			status   domain.TicketStatus
			priority domain.TicketPriority
			category domain.TicketCategory
			count    int
		)
		if err := rows.Scan(&status, &priority, &category, &count); err != nil {
			rows.Close()
			return nil, err
		}
		report.ByStatus[status] += count
		report.ByPriority[priority] += count
		report.ByCategory[category] += count
		report.TotalTickets += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const resolutionQuery = `
        SELECT COUNT(*), COALESCE(AVG(EXTRACT(EPOCH FROM (closed_at - created_at)) / 3600.0), 0)::float8
        FROM tickets
        WHERE created_at >= $1 AND created_at < $2
          AND status IN ('RESOLVED', 'CLOSED') AND closed_at IS NOT NULL`
	if err := r.db.QueryRow(ctx, resolutionQuery, from, to).Scan(&report.ClosedTickets, &report.AvgResolutionHours); err != nil {
		return nil, err
	}
	report.AvgResolutionHours = round(report.AvgResolutionHours, 2)

	const agentsQuery = `
        SELECT u.id, u.name, COUNT(*) AS assigned
        FROM tickets t
        JOIN users u ON u.id = t.assigned_to_id
        WHERE t.created_at >= $1 AND t.created_at < $2
        GROUP BY u.id, u.name
        ORDER BY assigned DESC, u.name ASC
        LIMIT 5`
	agents, err := r.db.Query(ctx, agentsQuery, from, to)
	if err != nil {
		return nil, err
	}
	defer agents.Close()
	for agents.Next() {
		var agent domain.AgentCount
		if err := agents.Scan(&agent.UserID, &agent.Name, &agent.Count); err != nil {
			return nil, err
		}
		report.TopAgents = append(report.TopAgents, agent)
	}
	return report, agents.Err()
}
