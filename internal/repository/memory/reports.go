package memory

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
)

type reportStore struct {
	s *Store
}

func (r *reportStore) Monthly(_ context.Context, from, to time.Time) (*domain.MonthlyReport, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	report := &domain.MonthlyReport{
		From:       from,
		To:         to,
		ByStatus:   map[domain.TicketStatus]int{},
		ByPriority: map[domain.TicketPriority]int{},
		ByCategory: map[domain.TicketCategory]int{},
	}

	perAgent := map[string]int{}
	var resolutionHours float64
	for _, t := range r.s.tickets {
		if t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		report.TotalTickets++
		report.ByStatus[t.Status]++
		report.ByPriority[t.Priority]++
		report.ByCategory[t.Category]++
		if t.Status.Terminal() && t.ClosedAt != nil {
			report.ClosedTickets++
			resolutionHours += t.ClosedAt.Sub(t.CreatedAt).Hours()
		}
		if t.AssignedToID != nil {
			perAgent[*t.AssignedToID]++
		}
	}
	if report.ClosedTickets > 0 {
		report.AvgResolutionHours = math.Round(resolutionHours/float64(report.ClosedTickets)*100) / 100
	}

	for id, count := range perAgent {
		agent := domain.AgentCount{UserID: id, Count: count}
		if u, ok := r.s.users[id]; ok {
			agent.Name = u.Name
		}
		report.TopAgents = append(report.TopAgents, agent)
	}
	sort.Slice(report.TopAgents, func(i, j int) bool {
		a, b := report.TopAgents[i], report.TopAgents[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if len(report.TopAgents) > 5 {
		report.TopAgents = report.TopAgents[:5]
	}
	return report, nil
}
